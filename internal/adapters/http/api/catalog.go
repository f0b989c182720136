package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Catalog(r.Context(), r.URL.Query().Get("emotion"), page, perPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCatalogItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.CatalogItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCatalogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.CatalogStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
