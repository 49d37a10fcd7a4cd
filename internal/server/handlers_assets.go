package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"scenekit/internal/api"
	"scenekit/internal/models"
)

const (
	emptyCollectionHeader = "X-Scenekit-Empty"
	defaultRecordHeader   = "X-Scenekit-Default"
)

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	kind, err := normalizeKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	explain, err := queryBool(r, "explain")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	name := r.URL.Query().Get("name")

	resp := api.ResolveResponse{ResolvedAsset: s.locator.ResolveAsset(r.Context(), name, kind)}
	if explain {
		resp.Candidates = s.locator.Plan(name, kind)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetBlob serves a vault payload for a handle minted in this session.
// Handles from an earlier session are rejected so stale urls fail loudly.
func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if !s.vault.Enabled() {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, makeAPIError(http.StatusServiceUnavailable, "unavailable", ErrCodeVaultUnavailable, models.ErrStorageUnavailable))
		return
	}
	if !s.vault.ValidSession(strings.TrimSpace(r.URL.Query().Get("s"))) {
		s.writeErrorReq(w, r, http.StatusGone, gone(fmt.Errorf("blob handle belongs to an earlier session")))
		return
	}

	rc, h, err := s.vault.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("blob %s not found", id), ErrCodeBlobNotFound))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(h.SizeBytes, 10))
	w.Header().Set("Cache-Control", "private, max-age=0")
	w.Header().Set("ETag", `"`+h.SHA256+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log().Warn("stream blob", "id", id, "error", err)
	}
}
