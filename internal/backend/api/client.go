// Package api is the REST client for the church entity backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"churchadmin/internal/core"
)

const (
	defaultTimeout = 10 * time.Second
	defaultBackoff = 200 * time.Millisecond
	maxErrorBody   = 64 << 10
)

// Client talks JSON to the backend. The bearer token is read from the
// request context, see core.WithToken.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how many times idempotent reads are retried on
// transport errors and 5xx responses.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the transport client. The configured timeout is
// kept unless hc sets its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Timeout == 0 {
			hc.Timeout = c.http.Timeout
		}
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http(s), got %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		backoff: defaultBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}

func (c *Client) Create(ctx context.Context, kind core.Kind, data map[string]any) (core.Record, error) {
	var raw map[string]any
	if err := c.sendJSON(ctx, http.MethodPost, "/"+kind.Slug(), data, &raw); err != nil {
		return core.Record{}, fmt.Errorf("create %s: %w", kind, err)
	}
	return decodeRecord(kind, raw), nil
}

func (c *Client) Update(ctx context.Context, kind core.Kind, id string, data map[string]any) (core.Record, error) {
	var raw map[string]any
	if err := c.sendJSON(ctx, http.MethodPatch, "/"+kind.Slug()+"/"+url.PathEscape(id), data, &raw); err != nil {
		return core.Record{}, fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	return decodeRecord(kind, raw), nil
}

func (c *Client) Get(ctx context.Context, kind core.Kind, id string) (core.Record, error) {
	var raw map[string]any
	if err := c.get(ctx, "/"+kind.Slug()+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return decodeRecord(kind, raw), nil
}

func (c *Client) Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	params := url.Values{}
	if q.Term != "" {
		params.Set("term", q.Term)
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	for k, v := range q.Filters {
		params.Set(k, v)
	}

	var raw []map[string]any
	if err := c.get(ctx, "/"+kind.Slug(), params, &raw); err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	out := make([]core.Record, 0, len(raw))
	for _, r := range raw {
		out = append(out, decodeRecord(kind, r))
	}
	return out, nil
}

func (c *Client) Inactivate(ctx context.Context, kind core.Kind, id string, data map[string]any) error {
	if err := c.sendJSON(ctx, http.MethodDelete, "/"+kind.Slug()+"/"+url.PathEscape(id), data, nil); err != nil {
		return fmt.Errorf("inactivate %s %s: %w", kind, id, err)
	}
	return nil
}

type uploadResponse struct {
	ImageURLs []string `json:"imageUrls"`
}

// Upload posts every file in one multipart request. The backend answers with
// the stored URLs in upload order.
func (c *Client) Upload(ctx context.Context, kind core.Kind, files []core.File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("fileType", kind.Slug()); err != nil {
		return nil, fmt.Errorf("write multipart field: %w", err)
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, &core.UploadError{File: f.Name, Err: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &core.UploadError{File: f.Name, Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var resp uploadResponse
	if err := c.do(ctx, http.MethodPost, "/files", nil, &body, mw.FormDataContentType(), &resp); err != nil {
		return nil, &core.UploadError{File: files[0].Name, Err: err}
	}
	if len(resp.ImageURLs) != len(files) {
		return resp.ImageURLs, &core.UploadError{
			File: files[0].Name,
			Err:  fmt.Errorf("backend stored %d of %d files", len(resp.ImageURLs), len(files)),
		}
	}
	return resp.ImageURLs, nil
}

func (c *Client) Delete(ctx context.Context, fileURL string) error {
	params := url.Values{"url": {fileURL}}
	if err := c.do(ctx, http.MethodDelete, "/files", params, nil, "", nil); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	core.Session
	User map[string]any `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (core.Session, error) {
	var resp loginResponse
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		// Any 4xx on login is a credentials problem.
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return core.Session{}, core.ErrUnauthorized
		}
		return core.Session{}, fmt.Errorf("login: %w", err)
	}
	sess := resp.Session
	if resp.User != nil {
		u := decodeRecord(core.KindUser, resp.User)
		if sess.UserID == "" {
			sess.UserID = u.ID
		}
		if sess.Email == "" {
			sess.Email = u.Field("email")
		}
		if sess.Name == "" {
			sess.Name = u.DisplayName()
		}
		if len(sess.Roles) == 0 {
			for _, r := range strings.Split(u.Field("roles"), ", ") {
				if r != "" {
					sess.Roles = append(sess.Roles, core.UserRole(r))
				}
			}
		}
	}
	if sess.Token == "" {
		return core.Session{}, errors.New("login: backend returned no access token")
	}
	return sess, nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	return c.do(ctx, method, path, nil, body, "application/json", out)
}

// get retries transient failures. Writes are never retried since the
// backend offers no idempotency keys.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, params, nil, "", out)
		if err != nil && retryable(err) {
			c.logger.WarnContext(ctx, "Backend read failed, retrying",
				"path", path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func retryable(err error) bool {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := core.TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend request",
		"method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError maps an error response to an APIError. A 404 also matches
// core.ErrNotFound.
func decodeError(resp *http.Response) error {
	apiErr := &core.APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		StatusCode int             `json:"statusCode"`
		Message    json.RawMessage `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = messageText(body.Message)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", core.ErrNotFound, apiErr)
	}
	return apiErr
}

// messageText accepts both a plain message and the list of validation
// messages some endpoints return.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// decodeRecord splits the envelope keys from the entity attributes.
func decodeRecord(kind core.Kind, raw map[string]any) core.Record {
	r := core.Record{Kind: kind, Status: core.StatusActive, Data: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "id":
			r.ID = fmt.Sprint(v)
		case "recordStatus":
			if s, ok := v.(string); ok && s != "" {
				r.Status = core.RecordStatus(s)
			}
		case "createdAt":
			r.CreatedAt = parseTime(v)
		case "updatedAt":
			r.UpdatedAt = parseTime(v)
		case "inactivatedAt":
			if t := parseTime(v); !t.IsZero() {
				r.InactivatedAt = &t
			}
		default:
			r.Data[k] = v
		}
	}
	return r
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
