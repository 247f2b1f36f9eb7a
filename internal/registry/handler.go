package registry

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/quadro/internal/platform/httpx"
)

// Handler exposes the lookups over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the lookup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/operators", h.listOperators)
	r.Get("/companies", h.listCompanies)
}

func (h *Handler) listOperators(w http.ResponseWriter, r *http.Request) {
	q, err := ParseOperatorsQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	names, err := h.service.ListOperators(r.Context(), q)
	if err != nil {
		h.logger.Error("list operators failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, names)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	q, err := ParseCompaniesQuery(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	names, err := h.service.ListCompanies(r.Context(), q)
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, names)
}
