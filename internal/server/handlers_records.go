package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"scenekit/internal/api"
	"scenekit/internal/entity"
	"scenekit/internal/models"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.entities.GetAll(r.Context())
	if err != nil && !errors.Is(err, entity.ErrNothingToShow) {
		s.writeStoreError(w, r, err)
		return
	}
	if errors.Is(err, entity.ErrNothingToShow) {
		w.Header().Set(emptyCollectionHeader, "nothing-to-show")
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	useDefault, err := queryBool(r, "default")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	rec, found := s.entities.Get(r.Context(), id)
	if !found {
		if !useDefault {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("record %s not found", id), ErrCodeRecordNotFound))
			return
		}
		// renderers ask for a placeholder instead of a 404
		w.Header().Set(defaultRecordHeader, "true")
	}
	s.writeJSON(w, http.StatusOK, models.RecordOrDefault(rec, found))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readRecordInput(w, r)
	if !ok {
		return
	}
	// create ignores any id in the body; the remote or the local fallback
	// assigns one
	in.Record.ID = ""

	saved, err := s.entities.Save(r.Context(), in, "")
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	in, ok := s.readRecordInput(w, r)
	if !ok {
		return
	}

	saved, err := s.entities.Save(r.Context(), in, id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.entities.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readRecordInput accepts a JSON record or the multipart form shared with
// the remote API.
func (s *Server) readRecordInput(w http.ResponseWriter, r *http.Request) (models.RecordInput, bool) {
	var in models.RecordInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		parsed, err := api.ReadRecordForm(r, multipartMemory)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
			return in, false
		}
		in = parsed
	} else {
		var rec models.GeometryRecord
		if !s.decodeJSONReq(w, r, &rec) {
			return in, false
		}
		in.Record = rec
	}

	normalized, err := normalizeRecordInput(in)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return in, false
	}
	return normalized, true
}
