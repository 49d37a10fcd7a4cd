package main

import (
	"context"
	"errors"
	"net"

	"scenekit/internal/api"
	"scenekit/internal/models"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify SCENEKIT_API_TOKEN and SCENEKIT_ADMIN_TOKEN configuration.")
		case "resource_exhausted":
			lines = append(lines, "hint: another vault gc is running; retry shortly.")
		case "gone":
			lines = append(lines, "hint: blob handles expire when the server restarts; list records again for fresh handles.")
		case "unavailable":
			lines = append(lines, "hint: the vault is disabled; check vault.dir and db_path.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify SCENEKIT_API_URL points to a scenekit server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase SCENEKIT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, models.ErrNetworkUnavailable) {
		lines = append(lines,
			"hint: ensure a scenekit server is running at SCENEKIT_API_URL.",
			"hint: start local server manually with: scenekit srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
