package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/client/backend"
	"github.com/dmitrijs2005/dogstack/internal/client/client"
	"github.com/dmitrijs2005/dogstack/internal/client/config"
	"github.com/dmitrijs2005/dogstack/internal/client/deeplink"
	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/navigation"
	"github.com/dmitrijs2005/dogstack/internal/client/profile"
	"github.com/dmitrijs2005/dogstack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dogstack/internal/client/session"
	"github.com/dmitrijs2005/dogstack/internal/client/upload"
	"github.com/dmitrijs2005/dogstack/internal/client/upload/s3store"
	"github.com/dmitrijs2005/dogstack/internal/common"
	"github.com/dmitrijs2005/dogstack/internal/filex"
	"github.com/dmitrijs2005/dogstack/internal/logging"
)

// Sessions is the part of the session store the REPL drives.
type Sessions interface {
	State() session.State
	SignInWithEmail(ctx context.Context, email, password string) (*models.User, error)
	SignUpWithEmail(ctx context.Context, email, password string) (*session.SignUpResult, error)
	SignOut(ctx context.Context) error
	OnAppForegrounded(ctx context.Context)
	EnsureValidUser(ctx context.Context) *models.User
}

// Profiles reads and writes the signed-in user's row.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.UserProfile, error)
}

// Completeness exposes the tracked profile-completeness value.
type Completeness interface {
	Value() profile.Completeness
	Recheck(ctx context.Context) profile.Completeness
	Wait()
}

// Uploads runs the image upload flow.
type Uploads interface {
	Upload(ctx context.Context, uri string, purpose upload.Purpose) (string, error)
}

// Links handles pasted auth callback links.
type Links interface {
	Handle(ctx context.Context, rawURL string)
}

// App is the interactive dogstack client.
type App struct {
	config       *config.Config
	logger       logging.Logger
	sessions     Sessions
	profiles     Profiles
	completeness Completeness
	uploads      Uploads
	links        Links
	reader       *bufio.Reader
	out          io.Writer

	// set by NewApp only
	db       *sql.DB
	store    *session.Store
	tracker  *profile.Tracker
	handler  *deeplink.Handler
	listener *deeplink.Listener
}

// NewApp opens the local database and wires the backend client, session
// store, completeness tracker, uploader and deep-link handling.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api, err := backend.New(backend.Options{
		BaseURL:    c.BackendURL,
		AnonKey:    c.AnonKey,
		RedirectTo: c.RedirectURL,
		Storage:    metadata.NewSQLiteStore(db),
		Logger:     logger.With("component", "backend"),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	objects, err := newObjectStore(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := session.NewStore(api, logger)
	tracker := profile.NewTracker(profile.NewGate(api, logger.With("component", "profile")))
	handler := deeplink.NewHandler(store, logger)

	a := &App{
		config:       c,
		logger:       logger,
		sessions:     store,
		profiles:     api,
		completeness: tracker,
		uploads:      upload.NewUploader(api, objects, api, logger),
		links:        handler,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		db:           db,
		store:        store,
		tracker:      tracker,
		handler:      handler,
	}

	if c.CallbackListenAddr != "" {
		a.listener, err = deeplink.NewListener(c.CallbackListenAddr, c.RedirectURL, handler)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return a, nil
}

func newObjectStore(c *config.Config) (upload.ObjectStore, error) {
	switch c.StorageBackend {
	case config.StorageBackendS3:
		st, err := s3store.New(s3store.Options{
			Endpoint:      c.S3.Endpoint,
			Region:        c.S3.Region,
			AccessKey:     c.S3.AccessKey,
			SecretKey:     c.S3.SecretKey,
			Bucket:        c.S3.Bucket,
			PublicBaseURL: c.S3.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return backend.NewStorage(c.StorageBaseURL(), common.ProfilePicturesBucket, nil), nil
	}
}

// Run restores the session, handles the link the client was started with,
// starts the callback listener and foreground watcher, and blocks in the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	detach := a.tracker.Attach(ctx, a.store)
	defer detach()

	a.store.Restore(ctx)
	a.handler.HandleInitial(ctx, a.config.InitialURL)

	if a.listener != nil {
		if err := a.listener.Start(ctx); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = a.listener.Shutdown(sctx)
		}()
	}

	go a.StartForegroundWatcher(ctx, a.config.ForegroundCheckInterval)

	a.Root(ctx)
	return nil
}

func (a *App) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

// StartForegroundWatcher re-validates the session every interval, the way a
// mobile client does when it returns to the foreground. It blocks until ctx
// is done.
func (a *App) StartForegroundWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			a.sessions.OnAppForegrounded(cctx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// currentStack reports the screen stack for the settled state. Pending
// completeness checks are waited for so the prompt does not flicker.
func (a *App) currentStack() navigation.Stack {
	a.completeness.Wait()
	st := a.sessions.State()
	return navigation.Select(st.Loading, st.User, a.completeness.Value())
}

func (a *App) currentUser() (*models.User, error) {
	u := a.sessions.State().User
	if u == nil {
		return nil, common.ErrNoSession
	}
	return u, nil
}

func (a *App) status() string {
	u := a.sessions.State().User
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return fmt.Sprintf("(%s)", u.Email)
	}
	return fmt.Sprintf("(%s)", u.ID)
}
