package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/common"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is returned by the token endpoints and by sign-up. When
// sign-up needs e-mail confirmation there are no tokens and the user fields
// sit at the top level.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (t *tokenResponse) hasSession() bool {
	return t.AccessToken != ""
}

func (t *tokenResponse) user() models.User {
	if t.User != nil && t.User.ID != "" {
		return models.User{ID: t.User.ID, Email: t.User.Email}
	}
	if t.ID != "" {
		return models.User{ID: t.ID, Email: t.Email}
	}
	if claims, ok := parseAccessToken(t.AccessToken); ok {
		return models.User{ID: claims.Subject, Email: claims.Email}
	}
	return models.User{}
}

func (t *tokenResponse) toSession(now time.Time) *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.user(),
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	default:
		if exp, ok := tokenExpiry(t.AccessToken); ok {
			s.ExpiresAt = exp.UTC()
		} else if t.ExpiresIn > 0 {
			s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
		}
	}
	return s
}

// SignUpResult is the outcome of SignUp. Session is nil when the backend
// requires e-mail confirmation before the first sign-in.
type SignUpResult struct {
	User    models.User
	Session *models.Session
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword authenticates with e-mail and password and makes the
// returned session current.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &tr)
	if err != nil {
		return nil, err
	}
	if !tr.hasSession() {
		return nil, fmt.Errorf("sign in: %w", common.ErrNoSession)
	}
	return c.establish(ctx, &tr, false)
}

// SignUp registers a new account. A PKCE verifier is stored first so the
// confirmation link can later be exchanged with ExchangeCodeForSession.
func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	verifier, challenge := newPKCE()
	if err := c.storage.Replace(ctx, map[string][]byte{codeVerifierKey: []byte(verifier)}); err != nil {
		return nil, fmt.Errorf("store code verifier: %w", err)
	}

	q := url.Values{}
	if c.redirectTo != "" {
		q.Set("redirect_to", c.redirectTo)
	}

	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		query:  q,
		body: map[string]string{
			"email":                 email,
			"password":              password,
			"code_challenge":        challenge,
			"code_challenge_method": "s256",
		},
	}, &tr)
	if err != nil {
		return nil, err
	}

	res := &SignUpResult{User: tr.user()}
	if !tr.hasSession() {
		return res, nil
	}
	s, err := c.establish(ctx, &tr, true)
	if err != nil {
		return nil, err
	}
	res.Session = s
	return res, nil
}

// AuthCode extracts the auth code from a callback URL. It returns "" when the
// URL cannot be parsed or carries no code.
func AuthCode(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(common.AuthCodeParam)
}

// ExchangeCodeForSession trades the code in rawURL, together with the stored
// PKCE verifier, for a session and makes it current.
func (c *Client) ExchangeCodeForSession(ctx context.Context, rawURL string) (*models.Session, error) {
	code := AuthCode(rawURL)
	if code == "" {
		return nil, common.ErrNoAuthCode
	}

	verifier, err := c.storage.Get(ctx, codeVerifierKey)
	if err != nil {
		return nil, fmt.Errorf("load code verifier: %w", err)
	}
	if len(verifier) == 0 {
		return nil, common.ErrNoCodeVerifier
	}

	var tr tokenResponse
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"pkce"}},
		body:   map[string]string{"auth_code": code, "code_verifier": string(verifier)},
	}, &tr)
	if err != nil {
		return nil, err
	}
	if !tr.hasSession() {
		return nil, fmt.Errorf("exchange code: %w", common.ErrNoSession)
	}
	return c.establish(ctx, &tr, true)
}

// establish persists a freshly issued session and emits SIGNED_IN.
func (c *Client) establish(ctx context.Context, tr *tokenResponse, clearVerifier bool) (*models.Session, error) {
	s := tr.toSession(c.now())

	c.mu.Lock()
	err := c.saveLocked(ctx, s, clearVerifier)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.emit(models.EventSignedIn, s)
	cp := *s
	return &cp, nil
}

// GetSession returns the current session, loading it from storage on first
// use and refreshing it when it is about to expire. It returns (nil, nil)
// when nobody is signed in. A refresh the backend rejects drops the session.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	s, err := c.loadLocked(ctx)
	if err != nil || s == nil {
		c.mu.Unlock()
		return nil, err
	}
	if !s.Expired(c.now(), refreshMargin) {
		cp := *s
		c.mu.Unlock()
		return &cp, nil
	}

	refreshed, err := c.refreshLocked(ctx, s.RefreshToken)
	c.mu.Unlock()
	return c.afterRefresh(ctx, refreshed, err)
}

// RefreshSession forces a token refresh of the current session.
func (c *Client) RefreshSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	s, err := c.loadLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if s == nil {
		c.mu.Unlock()
		return nil, common.ErrNoSession
	}

	refreshed, err := c.refreshLocked(ctx, s.RefreshToken)
	c.mu.Unlock()
	return c.afterRefresh(ctx, refreshed, err)
}

func (c *Client) afterRefresh(ctx context.Context, s *models.Session, err error) (*models.Session, error) {
	if err != nil {
		// Keep the session when the backend is merely unreachable.
		if !errors.Is(err, common.ErrUnavailable) {
			c.logger.Info(ctx, "session refresh rejected, signing out", "error", err)
			c.dropSession(ctx)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	c.emit(models.EventTokenRefreshed, s)
	cp := *s
	return &cp, nil
}

// GetUser asks the backend who the current access token belongs to.
func (c *Client) GetUser(ctx context.Context) (*models.User, error) {
	var ur userResponse
	err := c.doAuthed(ctx, request{method: http.MethodGet, path: "/auth/v1/user"}, &ur)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: ur.ID, Email: ur.Email}, nil
}

// SignOut revokes the session on the backend and always forgets it locally.
// The backend error, if any, is returned after the local sign-out.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s, loadErr := c.loadLocked(ctx)
	c.mu.Unlock()

	var remoteErr error
	if loadErr == nil && s != nil {
		remoteErr = c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			query:  url.Values{"scope": {"local"}},
			token:  s.AccessToken,
		}, nil)
		// An already invalid token is as signed out as it gets.
		if errors.Is(remoteErr, common.ErrUnauthorized) || errors.Is(remoteErr, common.ErrNotFound) {
			remoteErr = nil
		}
	}

	c.dropSession(ctx)
	return errors.Join(loadErr, remoteErr)
}

func (c *Client) loadLocked(ctx context.Context) (*models.Session, error) {
	if c.loaded {
		return c.session, nil
	}
	raw, err := c.storage.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.loaded = true
	if len(raw) == 0 {
		return nil, nil
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn(ctx, "discarding unreadable stored session", "error", err)
		return nil, nil
	}
	c.session = &s
	return c.session, nil
}

func (c *Client) saveLocked(ctx context.Context, s *models.Session, clearVerifier bool) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	var del []string
	if clearVerifier {
		del = append(del, codeVerifierKey)
	}
	if err := c.storage.Replace(ctx, map[string][]byte{sessionKey: raw}, del...); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.session = s
	c.loaded = true
	return nil
}

func (c *Client) refreshLocked(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, common.ErrTokenExpired
	}
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &tr)
	if err != nil {
		return nil, err
	}
	if !tr.hasSession() {
		return nil, common.ErrNoSession
	}
	s := tr.toSession(c.now())
	if err := c.saveLocked(ctx, s, false); err != nil {
		return nil, err
	}
	return s, nil
}

// dropSession forgets the session locally and emits SIGNED_OUT.
func (c *Client) dropSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	if err := c.storage.Replace(ctx, nil, sessionKey); err != nil {
		c.logger.Error(ctx, "failed to clear stored session", "error", err)
	}
	c.mu.Unlock()

	c.emit(models.EventSignedOut, nil)
}
