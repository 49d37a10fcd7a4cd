package probe

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 3 * time.Second

// HTTP checks existence with a single HEAD request.
type HTTP struct {
	client *http.Client
	origin *url.URL
	logger *slog.Logger
}

// HTTPOptions configures an HTTP prober.
type HTTPOptions struct {
	// Origin resolves site-relative candidates such as /models/chair.glb.
	Origin  string
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// NewHTTP builds an HTTP prober. A zero timeout uses the package default.
func NewHTTP(opts HTTPOptions) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &HTTP{client: client, logger: logger.With("component", "probe")}
	if origin := strings.TrimSpace(opts.Origin); origin != "" {
		if parsed, err := url.Parse(origin); err == nil && parsed.Scheme != "" && parsed.Host != "" {
			p.origin = parsed
		} else {
			p.logger.Warn("ignoring invalid probe origin", "origin", origin)
		}
	}
	return p
}

// Probe reports whether target answers a HEAD with 2xx.
// Any error, timeout, or other status is false; there are no retries.
func (p *HTTP) Probe(ctx context.Context, target string) bool {
	if p == nil {
		return false
	}
	resolved, ok := p.resolve(target)
	if !ok {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, resolved, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "url", resolved, "error", err)
		return false
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Debug("probe miss", "url", resolved, "status", resp.StatusCode)
		return false
	}
	return true
}

func (p *HTTP) resolve(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", false
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	if parsed.IsAbs() {
		return target, parsed.Scheme == "http" || parsed.Scheme == "https"
	}
	if p.origin == nil {
		return "", false
	}
	return p.origin.ResolveReference(parsed).String(), true
}
