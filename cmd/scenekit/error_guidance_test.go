package main

import (
	"context"
	"fmt"
	"net"
	"testing"

	"scenekit/internal/api"
	"scenekit/internal/models"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: ensure a scenekit server is running at SCENEKIT_API_URL.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
	if !containsLine(lines, "hint: start local server manually with: scenekit srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_WrappedNetworkUnavailable(t *testing.T) {
	err := fmt.Errorf("list records: %w", models.ErrNetworkUnavailable)
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: start local server manually with: scenekit srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIUnknownServiceGuidance(t *testing.T) {
	err := &api.APIError{Status: 404, Message: "api error: 404 Not Found"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify SCENEKIT_API_URL points to a scenekit server.") {
		t.Fatalf("expected api-url guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIAuthGuidance(t *testing.T) {
	err := &api.APIError{Status: 401, Code: "unauthorized", Message: "unauthorized"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify SCENEKIT_API_TOKEN and SCENEKIT_ADMIN_TOKEN configuration.") {
		t.Fatalf("expected auth guidance, got %v", lines)
	}
}

func TestFormatCLIError_StaleHandleGuidance(t *testing.T) {
	err := &api.APIError{Status: 410, Code: "gone", Message: "stale blob handle"}
	lines := formatCLIError(err)
	if len(lines) != 2 {
		t.Fatalf("expected error plus one hint, got %v", lines)
	}
}

func TestFormatCLIError_APIInternalGuidance(t *testing.T) {
	err := &api.APIError{Status: 500, Code: "internal", Message: "internal error"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: server returned an internal error; check server logs for details.") {
		t.Fatalf("expected internal-error guidance, got %v", lines)
	}
}

func TestFormatCLIError_Timeout(t *testing.T) {
	lines := formatCLIError(fmt.Errorf("get info: %w", context.DeadlineExceeded))
	if !containsLine(lines, "hint: request timed out; check server health or increase SCENEKIT_HTTP_TIMEOUT.") {
		t.Fatalf("expected timeout guidance, got %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
