package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.HandleFunc("GET /v1/types", s.handleTypes)

	// Records collection.
	mux.HandleFunc("GET /v1/records", s.handleListRecords)
	mux.HandleFunc("POST /v1/records", s.handleCreateRecord)

	// Single record.
	mux.HandleFunc("GET /v1/records/{id}", s.handleGetRecord)
	mux.HandleFunc("PUT /v1/records/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /v1/records/{id}", s.handleDeleteRecord)

	// Asset resolution and session blob handles.
	mux.HandleFunc("GET /v1/assets/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/blobs/{id}", s.handleGetBlob)

	// Admin.
	mux.HandleFunc("POST /v1/admin/vault/gc", s.handleAdminVaultGC)
	mux.HandleFunc("POST /v1/admin/ledger/clear", s.handleAdminLedgerClear)

	return mux
}
