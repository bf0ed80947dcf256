package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ryabich/flarecloud/internal/api/request"
	"github.com/ryabich/flarecloud/internal/api/response"
	"github.com/ryabich/flarecloud/internal/core"
)

type Certificate struct {
	svc *core.CertificateService
}

func NewCertificate(svc *core.CertificateService) *Certificate {
	return &Certificate{svc: svc}
}

// certStatusCode maps service errors to HTTP statuses. Unknown errors are
// server faults.
func certStatusCode(err error) int {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, core.ErrOrderInFlight):
		return http.StatusConflict
	case errors.Is(err, core.ErrCertificateProtected):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotRenewable),
		errors.Is(err, core.ErrRenewalNotDue),
		errors.Is(err, core.ErrDomainSuspended):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Certificate) Issue(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.IssueCertificate
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := h.svc.Issue(r.Context(), domainID, req.CommonName)
	if err != nil {
		response.WriteError(w, certStatusCode(err), err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, cert)
}

func (h *Certificate) Renew(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	certID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RenewCertificate
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	replacement, err := h.svc.Renew(r.Context(), domainID, certID, req.Force)
	if err != nil {
		response.WriteError(w, certStatusCode(err), err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, replacement)
}

func (h *Certificate) ListByDomain(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	certs, hasMore, err := h.svc.ListByDomain(r.Context(), domainID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Private keys never leave the service through list or get responses.
	for i := range certs {
		certs[i].KeyPEM = ""
	}
	var nextCursor string
	if hasMore && len(certs) > 0 {
		nextCursor = certs[len(certs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, certs, nextCursor, hasMore)
}

func (h *Certificate) Get(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	certID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := h.svc.GetByID(r.Context(), domainID, certID)
	if err != nil {
		response.WriteError(w, certStatusCode(err), err.Error())
		return
	}

	cert.KeyPEM = ""
	response.WriteJSON(w, http.StatusOK, cert)
}

func (h *Certificate) Logs(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	certID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.svc.Logs(r.Context(), domainID, certID)
	if err != nil {
		response.WriteError(w, certStatusCode(err), err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, logs)
}

func (h *Certificate) Delete(w http.ResponseWriter, r *http.Request) {
	domainID, err := request.RequireID(chi.URLParam(r, "domainID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	certID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), domainID, certID); err != nil {
		response.WriteError(w, certStatusCode(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
