package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/pkg/httputil"
	"github.com/utafrali/goodssearch/pkg/validator"
)

// Searcher is the part of the search facade exposed over HTTP.
type Searcher interface {
	Index(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service Searcher
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// documentStatus is the body returned by the index and remove endpoints.
type documentStatus struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Search handles POST /api/v1/search/page
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Search(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// IndexGoods handles PUT /api/v1/search/goods/{id}
func (h *SearchHandler) IndexGoods(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Index(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: documentStatus{ID: id, Status: "indexed"}})
}

// RemoveGoods handles DELETE /api/v1/search/goods/{id}
func (h *SearchHandler) RemoveGoods(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: documentStatus{ID: id, Status: "removed"}})
}
