package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCertificateHandler() *Certificate {
	return &Certificate{svc: nil}
}

// --- Issue ---

func TestCertificateIssue_EmptyDomainID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/domains//certificates", map[string]any{
		"common_name": "example.com",
	})
	r = withChiURLParam(r, "domainID", "")

	h.Issue(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestCertificateIssue_InvalidJSON(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/domains/"+validID+"/certificates", "{bad json")
	r = withChiURLParam(r, "domainID", validID)

	h.Issue(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestCertificateIssue_MissingCommonName(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/domains/"+validID+"/certificates", map[string]any{})
	r = withChiURLParam(r, "domainID", validID)

	h.Issue(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestCertificateIssue_InvalidCommonName(t *testing.T) {
	tests := []struct {
		name string
		cn   string
	}{
		{"empty string", ""},
		{"just spaces", "   "},
		{"bare label", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCertificateHandler()
			rec := httptest.NewRecorder()
			r := newRequest(http.MethodPost, "/domains/"+validID+"/certificates", map[string]any{
				"common_name": tt.cn,
			})
			r = withChiURLParam(r, "domainID", validID)

			h.Issue(rec, r)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCertificateIssue_ValidCommonName(t *testing.T) {
	tests := []string{
		"example.com",
		"sub.example.com",
		"deep.sub.example.com",
	}
	for _, cn := range tests {
		t.Run(cn, func(t *testing.T) {
			h := newCertificateHandler()
			rec := httptest.NewRecorder()
			r := newRequest(http.MethodPost, "/domains/"+validID+"/certificates", map[string]any{
				"common_name": cn,
			})
			r = withChiURLParam(r, "domainID", validID)

			func() {
				defer func() { recover() }()
				h.Issue(rec, r)
			}()

			assert.NotEqual(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// --- Renew ---

func TestCertificateRenew_EmptyDomainID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/domains//certificates/"+validID+"/renew", nil)
	r = withChiURLParams(r, map[string]string{"domainID": "", "id": validID})

	h.Renew(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestCertificateRenew_EmptyCertID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/domains/"+validID+"/certificates//renew", nil)
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": ""})

	h.Renew(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestCertificateRenew_InvalidJSON(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/domains/"+validID+"/certificates/"+validID+"/renew", "{bad")
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": validID})

	h.Renew(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestCertificateRenew_ForceFlagAccepted(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/domains/"+validID+"/certificates/"+validID+"/renew", map[string]any{
		"force": true,
	})
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": validID})

	func() {
		defer func() { recover() }()
		h.Renew(rec, r)
	}()

	assert.NotEqual(t, http.StatusBadRequest, rec.Code)
}

// --- ListByDomain ---

func TestCertificateListByDomain_EmptyDomainID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/domains//certificates", nil)
	r = withChiURLParam(r, "domainID", "")

	h.ListByDomain(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Get ---

func TestCertificateGet_EmptyCertID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/domains/"+validID+"/certificates/", nil)
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": ""})

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Logs ---

func TestCertificateLogs_EmptyCertID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/domains/"+validID+"/certificates//logs", nil)
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": ""})

	h.Logs(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Delete ---

func TestCertificateDelete_EmptyCertID(t *testing.T) {
	h := newCertificateHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/domains/"+validID+"/certificates/", nil)
	r = withChiURLParams(r, map[string]string{"domainID": validID, "id": ""})

	h.Delete(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}
