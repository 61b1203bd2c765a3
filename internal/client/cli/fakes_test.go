package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/profile"
	"github.com/dmitrijs2005/dogstack/internal/client/session"
	"github.com/dmitrijs2005/dogstack/internal/client/upload"
	"github.com/dmitrijs2005/dogstack/internal/logging"
)

type fakeSessions struct {
	mu    sync.Mutex
	state session.State

	SignInUser *models.User
	SignInErr  error
	LastEmail  string
	LastPass   string

	SignUpResult *session.SignUpResult
	SignUpErr    error

	SignOutErr   error
	SignOutCalls int

	ForegroundUser  *models.User
	ForegroundCalls int

	ValidUser   *models.User
	EnsureCalls int
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) setUser(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.User = u
}

func (f *fakeSessions) SignInWithEmail(_ context.Context, email, password string) (*models.User, error) {
	f.LastEmail, f.LastPass = email, password
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.setUser(f.SignInUser)
	return f.SignInUser, nil
}

func (f *fakeSessions) SignUpWithEmail(_ context.Context, email, password string) (*session.SignUpResult, error) {
	f.LastEmail, f.LastPass = email, password
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	if f.SignUpResult.SignedIn {
		u := f.SignUpResult.User
		f.setUser(&u)
	}
	return f.SignUpResult, nil
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.SignOutCalls++
	f.setUser(nil)
	return f.SignOutErr
}

func (f *fakeSessions) OnAppForegrounded(context.Context) {
	f.ForegroundCalls++
	f.setUser(f.ForegroundUser)
}

func (f *fakeSessions) EnsureValidUser(context.Context) *models.User {
	f.EnsureCalls++
	if f.ValidUser == nil {
		f.setUser(nil)
	}
	return f.ValidUser
}

type fakeProfiles struct {
	Profile    *models.UserProfile
	GetErr     error
	UpdateErr  error
	LastUserID string
	LastUpdate *models.ProfileUpdate
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	f.LastUserID = userID
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	p := *f.Profile
	return &p, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, userID string, upd models.ProfileUpdate) (*models.UserProfile, error) {
	f.LastUserID = userID
	f.LastUpdate = &upd
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	if f.Profile != nil {
		upd.Apply(f.Profile)
	}
	return f.Profile, nil
}

type fakeCompleteness struct {
	Current      profile.Completeness
	AfterRecheck profile.Completeness
	RecheckCalls int
}

func (f *fakeCompleteness) Value() profile.Completeness { return f.Current }
func (f *fakeCompleteness) Wait()                       {}
func (f *fakeCompleteness) Recheck(context.Context) profile.Completeness {
	f.RecheckCalls++
	f.Current = f.AfterRecheck
	return f.Current
}

type fakeUploads struct {
	URL         string
	Err         error
	LastURI     string
	LastPurpose upload.Purpose
	Calls       int
}

func (f *fakeUploads) Upload(_ context.Context, uri string, purpose upload.Purpose) (string, error) {
	f.Calls++
	f.LastURI, f.LastPurpose = uri, purpose
	return f.URL, f.Err
}

type fakeLinks struct {
	sessions *fakeSessions
	user     *models.User
	LastURL  string
}

func (f *fakeLinks) Handle(_ context.Context, rawURL string) {
	f.LastURL = rawURL
	if f.user != nil {
		f.sessions.setUser(f.user)
	}
}

type testApp struct {
	*App
	sessions     *fakeSessions
	profiles     *fakeProfiles
	completeness *fakeCompleteness
	uploads      *fakeUploads
	links        *fakeLinks
	out          *bytes.Buffer
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	s := &fakeSessions{}
	ta := &testApp{
		sessions:     s,
		profiles:     &fakeProfiles{Profile: &models.UserProfile{ID: "u1"}},
		completeness: &fakeCompleteness{},
		uploads:      &fakeUploads{},
		links:        &fakeLinks{sessions: s},
		out:          &bytes.Buffer{},
	}
	ta.App = &App{
		logger:       logging.Discard(),
		sessions:     ta.sessions,
		profiles:     ta.profiles,
		completeness: ta.completeness,
		uploads:      ta.uploads,
		links:        ta.links,
		reader:       bufio.NewReader(strings.NewReader(input)),
		out:          ta.out,
	}
	return ta
}

// stubInputs replaces the prompt helpers with canned answers, returned in order.
func stubInputs(t *testing.T, answers []string, password string) {
	t.Helper()
	origST, origOT, origGP := getSimpleText, getOptionalText, getPassword
	next := func() string {
		if len(answers) == 0 {
			return ""
		}
		a := answers[0]
		answers = answers[1:]
		return a
	}
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return next(), nil }
	getOptionalText = func(_ *bufio.Reader, _ string, _ io.Writer) (*string, error) {
		a := next()
		if a == "" {
			return nil, nil
		}
		return &a, nil
	}
	getPassword = func(_ io.Writer) (string, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText, getOptionalText, getPassword = origST, origOT, origGP
	})
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = strings.TrimSpace(toString(v))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return ""
	}
}
