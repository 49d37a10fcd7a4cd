package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"scenekit/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "SCENEKIT_HTTP_TIMEOUT"
	apiTokenEnvKey     = "SCENEKIT_API_TOKEN"
	adminTokenEnvKey   = "SCENEKIT_ADMIN_TOKEN"
	confirmHeader      = "X-Confirm"
	adminTokenHeader   = "X-Admin-Token"

	// LocalCollectionPath is the record collection on the local server.
	LocalCollectionPath = "/v1/records"
	LocalTypesPath      = "/v1/types"
	// RemoteCollectionPath is the default collection on the remote API.
	RemoteCollectionPath = "/api/geometries/"
	RemoteTypesPath      = "/api/types/"

	maxResponseBytes = 64 << 20
)

// Client talks to a record collection API: the remote source of truth or
// the local scenekit server, which exposes the same collection shape.
type Client struct {
	baseURL        string
	collectionPath string
	typesPath      string
	http           *http.Client
	authToken      string
	adminToken     string
}

// Option customizes a Client.
type Option func(*Client)

// WithCollectionPath sets the collection path, e.g. /api/geometries/.
func WithCollectionPath(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			c.collectionPath = "/" + strings.TrimLeft(p, "/")
		}
	}
}

func WithTypesPath(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			c.typesPath = "/" + strings.TrimLeft(p, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithToken overrides the bearer token read from the environment.
func WithToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithAdminToken overrides the admin token read from the environment.
func WithAdminToken(token string) Option {
	return func(c *Client) {
		c.adminToken = strings.TrimSpace(token)
	}
}

// NewClient creates a client for the local server; pass options to target
// a remote collection.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		collectionPath: LocalCollectionPath,
		typesPath:      LocalTypesPath,
		http:           &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:      strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken:     strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRemoteClient creates a client for the remote record API.
func NewRemoteClient(baseURL, collectionPath string, opts ...Option) *Client {
	base := []Option{WithCollectionPath(RemoteCollectionPath), WithTypesPath(RemoteTypesPath), WithToken(""), WithAdminToken("")}
	if strings.TrimSpace(collectionPath) != "" {
		base = append(base, WithCollectionPath(collectionPath))
	}
	return NewClient(baseURL, append(base, opts...)...)
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks whether the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// ListRecords fetches the collection, accepting either response shape.
func (c *Client) ListRecords(ctx context.Context) ([]models.GeometryRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.collectionPath, nil, nil, &raw); err != nil {
		return nil, err
	}
	return DecodeRecords(raw)
}

func (c *Client) GetRecord(ctx context.Context, id string) (models.GeometryRecord, error) {
	var resp models.GeometryRecord
	err := c.do(ctx, http.MethodGet, c.itemPath(id), nil, nil, &resp)
	return resp, err
}

// CreateRecord posts a multipart create.
func (c *Client) CreateRecord(ctx context.Context, in models.RecordInput) (models.GeometryRecord, error) {
	return c.sendForm(ctx, http.MethodPost, c.collectionPath, in)
}

// UpdateRecord puts a multipart update for id.
func (c *Client) UpdateRecord(ctx context.Context, id string, in models.RecordInput) (models.GeometryRecord, error) {
	return c.sendForm(ctx, http.MethodPut, c.itemPath(id), in)
}

// DeleteRecord deletes id. Any 2xx counts as success; the body is ignored.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.itemPath(id), nil, nil, nil)
}

func (c *Client) ListTypes(ctx context.Context) ([]models.TypeInfo, error) {
	var resp []models.TypeInfo
	err := c.do(ctx, http.MethodGet, c.typesPath, nil, nil, &resp)
	return resp, err
}

// Resolve asks the local server to resolve an asset reference.
func (c *Client) Resolve(ctx context.Context, name string, kind models.AssetKind, explain bool) (ResolveResponse, error) {
	var resp ResolveResponse
	query := url.Values{}
	query.Set("name", name)
	query.Set("kind", string(kind))
	if explain {
		query.Set("explain", "true")
	}
	err := c.do(ctx, http.MethodGet, "/v1/assets/resolve", query, nil, &resp)
	return resp, err
}

func (c *Client) VaultGC(ctx context.Context, apply bool) (VaultGCResponse, error) {
	var resp VaultGCResponse
	query := url.Values{}
	header := http.Header{}
	if apply {
		query.Set("apply", "true")
		header.Set(confirmHeader, "true")
	}
	err := c.doHeaders(ctx, http.MethodPost, "/v1/admin/vault/gc", query, header, nil, &resp)
	return resp, err
}

func (c *Client) ClearLedger(ctx context.Context) (LedgerClearResponse, error) {
	var resp LedgerClearResponse
	header := http.Header{}
	header.Set(confirmHeader, "true")
	err := c.doHeaders(ctx, http.MethodPost, "/v1/admin/ledger/clear", nil, header, nil, &resp)
	return resp, err
}

func (c *Client) itemPath(id string) string {
	escaped := url.PathEscape(strings.TrimSpace(id))
	if strings.HasSuffix(c.collectionPath, "/") {
		return c.collectionPath + escaped + "/"
	}
	return c.collectionPath + "/" + escaped
}

func (c *Client) sendForm(ctx context.Context, method, path string, in models.RecordInput) (models.GeometryRecord, error) {
	var resp models.GeometryRecord
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := WriteRecordForm(w, in); err != nil {
		return resp, err
	}
	if err := w.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.setAuthHeader(req)
	err = c.roundTrip(req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	return c.doHeaders(ctx, method, path, query, nil, body, out)
}

func (c *Client) doHeaders(ctx context.Context, method, path string, query url.Values, header http.Header, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	c.setAuthHeader(req)
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %w: %w", models.ErrUnreadableReply, models.ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if req == nil {
		return
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.adminToken != "" && strings.HasPrefix(req.URL.Path, "/v1/admin/") {
		req.Header.Set(adminTokenHeader, c.adminToken)
	}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
