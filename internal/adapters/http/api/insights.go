package api

import "net/http"

type clearResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.HistoryStats(r.Context(), subject(r), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.ClearHistory(r.Context(), subject(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Message: "History cleared successfully", Deleted: n})
}

func (s *Server) handleMoodPatterns(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.MoodPatterns(r.Context(), subject(r), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMusicTaste(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.MusicTaste(r.Context(), subject(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
