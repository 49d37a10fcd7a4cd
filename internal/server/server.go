package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"scenekit/internal/api"
	"scenekit/internal/blobstore"
	"scenekit/internal/entity"
	"scenekit/internal/locator"
	"scenekit/internal/store"
)

const (
	apiTokenHashEnvKey   = "SCENEKIT_API_TOKEN_HASH"
	adminTokenHashEnvKey = "SCENEKIT_ADMIN_TOKEN_HASH"
	allowRemoteEnvKey    = "SCENEKIT_ALLOW_REMOTE"
	readHeaderTimeout    = 5 * time.Second
	readTimeout          = 60 * time.Second
	writeTimeout         = 120 * time.Second
	idleTimeout          = 60 * time.Second
	gcConcurrencyLimit   = 1
	shutdownTimeout      = 10 * time.Second
)

// Options wires a Server.
type Options struct {
	Addr     string
	Entities *entity.Store
	Locator  *locator.Locator
	Vault    *blobstore.Vault
	Ledger   *store.Ledger
	// Info carries the static fields reported by GET /v1/info.
	Info api.InfoResponse
	// APITokenHash and AdminTokenHash are bcrypt hashes; empty disables the
	// corresponding check. Environment values override them.
	APITokenHash   string
	AdminTokenHash string
	// MaxUploadBytes bounds create/update bodies.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server wraps HTTP handlers for the scenekit API.
type Server struct {
	addr           string
	entities       *entity.Store
	locator        *locator.Locator
	vault          *blobstore.Vault
	ledger         *store.Ledger
	info           api.InfoResponse
	apiToken       tokenCheck
	adminToken     tokenCheck
	maxUploadBytes int64
	logger         *slog.Logger
	gcLimiter      chan struct{}
}

// New creates a new server instance.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultUploadMaxBody
	}

	s := &Server{
		addr:           opts.Addr,
		entities:       opts.Entities,
		locator:        opts.Locator,
		vault:          opts.Vault,
		ledger:         opts.Ledger,
		info:           opts.Info,
		apiToken:       newTokenCheck(firstNonEmpty(os.Getenv(apiTokenHashEnvKey), opts.APITokenHash)),
		adminToken:     newTokenCheck(firstNonEmpty(os.Getenv(adminTokenHashEnvKey), opts.AdminTokenHash)),
		maxUploadBytes: maxUpload,
		logger:         logger.With("component", "server"),
		gcLimiter:      make(chan struct{}, gcConcurrencyLimit),
	}
	s.info.AuthRequired = s.apiToken.configured()
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server and stops it when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log().Info("stopping server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
