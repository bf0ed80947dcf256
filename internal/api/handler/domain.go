package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ryabich/flarecloud/internal/api/request"
	"github.com/ryabich/flarecloud/internal/api/response"
	"github.com/ryabich/flarecloud/internal/core"
	"github.com/ryabich/flarecloud/internal/model"
	"github.com/ryabich/flarecloud/internal/platform"
)

type Domain struct {
	svc *core.DomainService
}

func NewDomain(svc *core.DomainService) *Domain {
	return &Domain{svc: svc}
}

func (h *Domain) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDomain
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	domain := &model.Domain{
		ID:        platform.NewID(),
		Name:      req.Name,
		Status:    model.DomainStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.svc.Create(r.Context(), domain); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, domain)
}

func (h *Domain) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, domain)
}

func (h *Domain) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	domains, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(domains) > 0 {
		nextCursor = domains[len(domains)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, domains, nextCursor, hasMore)
}

func (h *Domain) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.DomainStatusSuspended)
}

func (h *Domain) Unsuspend(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.DomainStatusActive)
}

func (h *Domain) setStatus(w http.ResponseWriter, r *http.Request, status model.DomainStatus) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetStatus(r.Context(), id, status); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Domain) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
