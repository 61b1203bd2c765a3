package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/common"
	"github.com/dmitrijs2005/dogstack/internal/logging"
	"github.com/google/uuid"
)

const (
	sessionKey      = "session"
	codeVerifierKey = "code_verifier"

	// refreshMargin is how close to expiry a session is refreshed eagerly.
	refreshMargin = 30 * time.Second

	maxResponseBody = 1 << 20
)

// SessionStorage persists the auth session between runs. Get returns
// (nil, nil) for a missing key; Replace applies its sets and deletes atomically.
type SessionStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Replace(ctx context.Context, set map[string][]byte, del ...string) error
}

// AuthListener receives auth state changes. session is nil on sign-out.
type AuthListener func(event models.AuthEvent, session *models.Session)

// Options configures a Client.
type Options struct {
	BaseURL    string
	AnonKey    string
	RedirectTo string
	HTTPClient *http.Client
	Storage    SessionStorage
	Logger     logging.Logger
	Now        func() time.Time
}

type listener struct {
	id uuid.UUID
	fn AuthListener
}

// Client talks to the auth and rows endpoints and owns the current session.
type Client struct {
	baseURL    string
	anonKey    string
	redirectTo string
	http       *http.Client
	storage    SessionStorage
	logger     logging.Logger
	now        func() time.Time

	// mu guards session and loaded and serialises refreshes.
	mu      sync.Mutex
	session *models.Session
	loaded  bool

	// emitMu keeps listener calls in emission order.
	emitMu      sync.Mutex
	listenersMu sync.Mutex
	listeners   []listener
}

// New builds a Client. BaseURL and Storage are required.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend: base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("backend: invalid base url: %w", err)
	}
	if opts.Storage == nil {
		return nil, errors.New("backend: session storage is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		anonKey:    opts.AnonKey,
		redirectTo: opts.RedirectTo,
		http:       opts.HTTPClient,
		storage:    opts.Storage,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// OnAuthStateChange registers fn for auth state changes and returns a func
// that removes it.
func (c *Client) OnAuthStateChange(fn AuthListener) (unsubscribe func()) {
	id := uuid.New()

	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) emit(event models.AuthEvent, session *models.Session) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.listenersMu.Lock()
	ls := make([]listener, len(c.listeners))
	copy(ls, c.listeners)
	c.listenersMu.Unlock()

	for _, l := range ls {
		var s *models.Session
		if session != nil {
			cp := *session
			s = &cp
		}
		l.fn(event, s)
	}
}

// request describes one backend call.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers http.Header
	token   string
}

// do performs r and decodes a JSON response into out (when non-nil).
// Transport failures wrap common.ErrUnavailable; non-2xx statuses become
// *APIError.
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set(common.APIKeyHeaderName, c.anonKey)
	}
	token := r.token
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", common.ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", common.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.Debug(ctx, "backend request failed",
			"method", r.method, "path", r.path, "status", resp.StatusCode, "request_id", reqID)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doAuthed performs r with the current access token. A 401 triggers one
// refresh and retry; when the retry is still rejected the local session is
// dropped and SIGNED_OUT is emitted.
func (c *Client) doAuthed(ctx context.Context, r request, out any) error {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return common.ErrNoSession
	}

	r.token = sess.AccessToken
	err = c.do(ctx, r, out)
	if !errors.Is(err, common.ErrUnauthorized) {
		return err
	}

	refreshed, rerr := c.RefreshSession(ctx)
	if rerr != nil {
		return err
	}

	r.token = refreshed.AccessToken
	err = c.do(ctx, r, out)
	if errors.Is(err, common.ErrUnauthorized) {
		c.logger.Warn(ctx, "access token rejected after refresh, dropping session")
		c.dropSession(ctx)
	}
	return err
}
