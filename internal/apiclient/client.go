package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20

	// RequestIDHeader carries a per-request correlation id
	RequestIDHeader = "X-Request-ID"
)

// Config holds the client settings
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Token is the legacy bearer token used when no session cookie is present
	Token string

	// HTTPClient overrides the default client; its Jar is replaced when nil
	HTTPClient *http.Client
	Logger     log.FieldLogger
}

// Client is a typed client for the ATS REST API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     log.FieldLogger
	query   *schema.Encoder

	mu    sync.RWMutex
	token string
}

// New creates a client with a cookie jar so the server session survives between calls
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/api")

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	enc := schema.NewEncoder()
	enc.RegisterEncoder(time.Time{}, func(v reflect.Value) string {
		return v.Interface().(time.Time).Format(time.RFC3339)
	})

	return &Client{
		baseURL: base,
		http:    hc,
		log:     logger,
		query:   enc,
		token:   cfg.Token,
	}, nil
}

// BaseURL returns the normalised API root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetToken stores the legacy bearer token; an empty token disables the header
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current legacy bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Cookies returns the session cookies held for the API host
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) encodeQuery(v interface{}) (url.Values, error) {
	q := url.Values{}
	if err := c.query.Encode(v, q); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return q, nil
}

// doJSON sends body as JSON and decodes the response into out
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

// doForm sends url-encoded form values and decodes the response into out
func (c *Client) doForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.log.WithFields(log.Fields{
		"request_id": requestID,
		"method":     req.Method,
		"path":       path,
	})
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithError(err).Debug("Request failed")
		return fmt.Errorf("failed to %s %s: %w: %w", req.Method, path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s %s response: %w: %w", req.Method, path, ErrNetwork, err)
	}

	logger.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req.Method, path, resp.StatusCode, body)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodDelete, path, query, nil, out)
}

// IsCanceled reports whether err came from a canceled or expired context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
