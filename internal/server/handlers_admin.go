package server

import (
	"fmt"
	"net/http"

	"scenekit/internal/api"
)

func (s *Server) handleAdminVaultGC(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.gcLimiter, w, r, "vault gc") {
		return
	}
	defer s.releaseLimiter(s.gcLimiter)

	apply, err := queryBool(r, "apply")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if apply && r.Header.Get(confirmHeader) != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("apply requires %s: true header", confirmHeader), ErrCodeMissingRequired))
		return
	}

	report, err := s.vault.GC(r.Context(), s.entities.ReferencedBlobs(r.Context()), apply)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.VaultGCResponse{
		Orphans:        report.Orphans,
		ReclaimedBytes: report.ReclaimedBytes,
		Applied:        report.Applied,
	})
}

func (s *Server) handleAdminLedgerClear(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(confirmHeader) != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("clear requires %s: true header", confirmHeader), ErrCodeMissingRequired))
		return
	}

	count, err := s.ledger.Count(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.ledger.Clear(r.Context()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.entities.Reset()

	s.writeJSON(w, http.StatusOK, api.LedgerClearResponse{Cleared: count})
}
