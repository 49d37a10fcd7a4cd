package server

import (
	"net/http"

	"scenekit/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := s.info
	resp.Session = s.vault.Session()
	resp.VaultEnabled = s.vault.Enabled()
	if count, err := s.ledger.Count(r.Context()); err == nil {
		resp.LedgerCount = count
	} else {
		s.log().Debug("ledger count unavailable", "error", err)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.GeometryTypes())
}
