package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/moodtune/internal/app"
)

const defaultPerPage = 20

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req service.RecommendRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.deps.Recommend(r.Context(), subject(r), r.Header.Get(IdempotencyHeader), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecommendationHistory(w http.ResponseWriter, r *http.Request) {
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
	res, err := s.deps.History(r.Context(), subject(r), page, perPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.GetMatch(r.Context(), subject(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req service.FeedbackRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Feedback(r.Context(), subject(r), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
