package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/client/client"
	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/repositories/metadata"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func mintToken(t *testing.T, userID, email string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	})
	s, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

// fakeBackend is a tiny in-process stand-in for the auth and rows endpoints.
type fakeBackend struct {
	t *testing.T

	mu sync.Mutex

	// behaviour
	password       string
	userID         string
	email          string
	tokenTTL       time.Duration
	autoConfirm    bool
	refreshStatus  int
	rejectTokens   map[string]bool
	logoutStatus   int
	validCode      string
	profiles       map[string]map[string]any
	getProfileFail int

	// observations
	calls           map[string]int
	lastSignupBody  map[string]string
	lastExchange    map[string]string
	lastAuthHeader  string
	lastAPIKey      string
	issuedRefreshes int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	f := &fakeBackend{
		t:            t,
		password:     "woof",
		userID:       "u-1",
		email:        "rex@example.com",
		tokenTTL:     time.Hour,
		autoConfirm:  true,
		rejectTokens: map[string]bool{},
		validCode:    "ABC",
		profiles:     map[string]map[string]any{},
		calls:        map[string]int{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeBackend) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) tokenBody() map[string]any {
	f.issuedRefreshes++
	return map[string]any{
		"access_token":  mintToken(f.t, f.userID, f.email, time.Now().Add(f.tokenTTL)),
		"token_type":    "bearer",
		"expires_in":    int(f.tokenTTL.Seconds()),
		"refresh_token": fmt.Sprintf("rt-%d", f.issuedRefreshes),
		"user":          map[string]any{"id": f.userID, "email": f.email},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if gt := r.URL.Query().Get("grant_type"); gt != "" {
		key += "?" + gt
	}
	f.calls[key]++
	f.lastAPIKey = r.Header.Get("apikey")
	f.lastAuthHeader = r.Header.Get("Authorization")

	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	var body map[string]string
	if r.Body != nil && r.Method != http.MethodGet {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	switch key {
	case "POST /auth/v1/token?password":
		if body["password"] != f.password {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, f.tokenBody())

	case "POST /auth/v1/signup":
		f.lastSignupBody = body
		if !f.autoConfirm {
			writeJSON(w, http.StatusOK, map[string]any{"id": f.userID, "email": body["email"]})
			return
		}
		writeJSON(w, http.StatusOK, f.tokenBody())

	case "POST /auth/v1/token?pkce":
		f.lastExchange = body
		if body["auth_code"] != f.validCode {
			writeJSON(w, http.StatusForbidden, map[string]any{"error_code": "flow_state_not_found", "msg": "invalid flow state"})
			return
		}
		writeJSON(w, http.StatusOK, f.tokenBody())

	case "POST /auth/v1/token?refresh_token":
		if f.refreshStatus != 0 {
			writeJSON(w, f.refreshStatus, map[string]any{"error": "invalid_grant", "error_description": "Invalid Refresh Token"})
			return
		}
		writeJSON(w, http.StatusOK, f.tokenBody())

	case "GET /auth/v1/user":
		if f.rejectTokens[bearer] {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "JWT expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": f.userID, "email": f.email})

	case "POST /auth/v1/logout":
		if f.logoutStatus != 0 {
			writeJSON(w, f.logoutStatus, map[string]any{"msg": "logout failed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "GET /rest/v1/users":
		if f.getProfileFail != 0 {
			writeJSON(w, f.getProfileFail, map[string]any{"message": "db down"})
			return
		}
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		row, ok := f.profiles[id]
		if !ok {
			writeJSON(w, http.StatusNotAcceptable, map[string]any{"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned"})
			return
		}
		writeJSON(w, http.StatusOK, row)

	case "POST /rest/v1/users":
		if _, ok := f.profiles[body["id"]]; ok {
			writeJSON(w, http.StatusConflict, map[string]any{"code": "23505", "message": "duplicate key value violates unique constraint"})
			return
		}
		f.profiles[body["id"]] = map[string]any{"id": body["id"]}
		w.WriteHeader(http.StatusCreated)

	case "PATCH /rest/v1/users":
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		row, ok := f.profiles[id]
		if !ok {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		for k, v := range body {
			row[k] = v
		}
		writeJSON(w, http.StatusOK, []any{row})

	default:
		http.NotFound(w, r)
	}
}

func newStore(t *testing.T) *metadata.SQLiteStore {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "dogstack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return metadata.NewSQLiteStore(db)
}

type recordedEvent struct {
	event  models.AuthEvent
	userID string
}

func newTestClient(t *testing.T, baseURL string, storage SessionStorage) (*Client, *[]recordedEvent) {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, AnonKey: "anon", RedirectTo: "dogstack://auth/callback", Storage: storage})
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		events []recordedEvent
	)
	c.OnAuthStateChange(func(e models.AuthEvent, s *models.Session) {
		mu.Lock()
		defer mu.Unlock()
		id := ""
		if s != nil {
			id = s.User.ID
		}
		events = append(events, recordedEvent{event: e, userID: id})
	})
	return c, &events
}
