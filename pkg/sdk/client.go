// Package sdk provides the HTTP client for the Comply-X daemon.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/complyx/complyx/pkg/schema"
)

const (
	apiPrefix   = "/api/v1"
	maxAttempts = 3
)

// Client talks to complyxd on behalf of one user.
type Client struct {
	baseURL string
	userID  string
	token   string
	http    *http.Client
	backoff time.Duration
	log     io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithGatewayToken sends the shared gateway token with every request.
func WithGatewayToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithInsecureTLS accepts the daemon's self-signed certificate.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.http.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed internal cert
		}
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates a client for the daemon at addr acting as userID.
func NewClient(addr, userID string, opts ...Option) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	c := &Client{
		baseURL: strings.TrimRight(addr, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 30 * time.Second},
		backoff: 200 * time.Millisecond,
		log:     os.Stderr,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func retryable(method string, status int, err error) bool {
	if method == http.MethodPost {
		return false
	}
	if err != nil {
		return true
	}
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

// do sends one request. Idempotent requests are retried up to three times
// on transport failures and gateway errors, with linear backoff.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * c.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", c.userID)
		if c.token != "" {
			req.Header.Set("X-Gateway-Token", c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || !retryable(method, 0, err) {
				return err
			}
			fmt.Fprintf(c.log, "[ComplyX SDK] Attempt %d failed: %v. Retrying...\n", i+1, err)
			continue
		}

		err = c.decode(resp, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(method, resp.StatusCode, nil) {
			return err
		}
		fmt.Fprintf(c.log, "[ComplyX SDK] Attempt %d failed: %v. Retrying...\n", i+1, err)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// --- Generics Support ---

// Call performs a request and decodes the response into T.
func Call[T any](ctx context.Context, c *Client, method, path string, in any) (T, error) {
	var out T
	err := c.do(ctx, method, path, in, &out)
	return out, err
}

// CallPtr is Call for single objects; it returns nil on error.
func CallPtr[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	out := new(T)
	if err := c.do(ctx, method, path, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func docPath(id string, rest ...string) string {
	p := "/documents/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

func (c *Client) ListDocuments(ctx context.Context) ([]schema.Document, error) {
	return Call[[]schema.Document](ctx, c, http.MethodGet, "/documents", nil)
}

func (c *Client) GetDocument(ctx context.Context, id string) (*schema.Document, error) {
	return CallPtr[schema.Document](ctx, c, http.MethodGet, docPath(id), nil)
}

// SearchParams are the query parameters of /documents/search. Zero values are omitted.
type SearchParams struct {
	Query         string
	Type          string
	Status        string
	AccessLevel   string
	Category      string
	OwnerID       string
	CreatedAfter  string
	CreatedBefore string
	ExpiresBefore string
	NeedsReview   bool
	Page          int
	Size          int
	SortBy        string
	SortOrder     string
}

// Encode renders the parameters as a query string.
func (p SearchParams) Encode() string {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("query", p.Query)
	set("document_type", p.Type)
	set("status", p.Status)
	set("access_level", p.AccessLevel)
	set("category", p.Category)
	set("owner_id", p.OwnerID)
	set("created_after", p.CreatedAfter)
	set("created_before", p.CreatedBefore)
	set("expires_before", p.ExpiresBefore)
	set("sort_by", p.SortBy)
	set("sort_order", p.SortOrder)
	if p.NeedsReview {
		v.Set("needs_review", "true")
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		v.Set("size", strconv.Itoa(p.Size))
	}
	return v.Encode()
}

func (c *Client) Search(ctx context.Context, q SearchParams) (*schema.SearchResult, error) {
	path := "/documents/search"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return CallPtr[schema.SearchResult](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) Stats(ctx context.Context) (*schema.Stats, error) {
	return CallPtr[schema.Stats](ctx, c, http.MethodGet, "/documents/stats", nil)
}

func (c *Client) Permissions(ctx context.Context, id string) (*schema.Permissions, error) {
	return CallPtr[schema.Permissions](ctx, c, http.MethodGet, docPath(id, "permissions"), nil)
}

func (c *Client) CreateDocument(ctx context.Context, in schema.DocumentInput) (*schema.Document, error) {
	return CallPtr[schema.Document](ctx, c, http.MethodPost, "/documents", in)
}

func (c *Client) UpdateDocument(ctx context.Context, id string, upd schema.DocumentUpdate) (*schema.Document, error) {
	return CallPtr[schema.Document](ctx, c, http.MethodPut, docPath(id), upd)
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, docPath(id), nil, nil)
}

// Transition requests a status change such as "approve" or "publish".
func (c *Client) Transition(ctx context.Context, id, action, comment string) (*schema.Document, error) {
	var body any
	if comment != "" {
		body = map[string]string{"comment": comment}
	}
	return CallPtr[schema.Document](ctx, c, http.MethodPost, docPath(id, action), body)
}

func (c *Client) Transfer(ctx context.Context, id, newOwnerID string) (*schema.Document, error) {
	return CallPtr[schema.Document](ctx, c, http.MethodPost, docPath(id, "transfer"), map[string]string{"new_owner_id": newOwnerID})
}

func (c *Client) ListGrants(ctx context.Context, documentID string) ([]schema.GrantView, error) {
	return Call[[]schema.GrantView](ctx, c, http.MethodGet, docPath(documentID, "access"), nil)
}

func (c *Client) PutGrant(ctx context.Context, documentID string, in schema.GrantInput) (*schema.Grant, error) {
	return CallPtr[schema.Grant](ctx, c, http.MethodPost, docPath(documentID, "access"), in)
}

func (c *Client) RevokeGrant(ctx context.Context, documentID, grantID string) error {
	return c.do(ctx, http.MethodDelete, docPath(documentID, "access", grantID), nil, nil)
}

func (c *Client) AuditTrail(ctx context.Context, documentID string) ([]schema.AuditLogEntry, error) {
	return Call[[]schema.AuditLogEntry](ctx, c, http.MethodGet, docPath(documentID, "audit"), nil)
}

func (c *Client) SecuritySettings(ctx context.Context) (*schema.SecuritySettings, error) {
	return CallPtr[schema.SecuritySettings](ctx, c, http.MethodGet, "/settings/security", nil)
}

// IsRetriesExhausted reports whether err came from a request that failed on every attempt.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}
