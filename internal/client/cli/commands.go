package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/client/deeplink"
	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/profile"
	"github.com/dmitrijs2005/dogstack/internal/client/upload"
)

// getSimpleText, getOptionalText and getPassword are indirections used to
// facilitate testing.
var (
	getSimpleText   = GetSimpleText
	getOptionalText = GetOptionalText
	getPassword     = GetPassword
)

var (
	ErrNotAuthLink    = errors.New("not an auth callback link")
	ErrLinkRejected   = errors.New("sign-in link could not be used")
	ErrSessionInvalid = errors.New("session is no longer valid, sign in again")
)

func (a *App) credentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

// Register creates an account. Unless the backend signs the user in straight
// away, the account is confirmed through the e-mailed link.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}

	res, err := a.sessions.SignUpWithEmail(ctx, email, password)
	if err != nil {
		return err
	}

	if res.SignedIn {
		fmt.Fprintf(a.out, "Signed up and signed in as %s\n", displayName(&res.User))
		return nil
	}
	fmt.Fprintf(a.out, "Check %s for a confirmation link, then open it or paste it with 'link <url>'\n", email)
	return nil
}

// Login signs in with e-mail and password.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}

	u, err := a.sessions.SignInWithEmail(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", displayName(u))
	return nil
}

// Link handles a pasted auth callback link as if the OS had opened it.
func (a *App) Link(ctx context.Context, rawURL string) error {
	if !deeplink.IsAuthCallback(rawURL) {
		return ErrNotAuthLink
	}
	a.links.Handle(ctx, rawURL)

	u := a.sessions.State().User
	if u == nil {
		return ErrLinkRejected
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", displayName(u))
	return nil
}

// Complete walks the user through the missing profile fields and re-runs the
// completeness check.
func (a *App) Complete(ctx context.Context) error {
	u := a.sessions.EnsureValidUser(ctx)
	if u == nil {
		return ErrSessionInvalid
	}

	p, err := a.profiles.GetProfile(ctx, u.ID)
	if err != nil {
		return err
	}

	var upd models.ProfileUpdate
	if upd.FirstName, err = a.askField("First name", p.FirstName); err != nil {
		return err
	}
	if upd.LastName, err = a.askField("Last name", p.LastName); err != nil {
		return err
	}
	if upd.Address, err = a.askField("Address", p.Address); err != nil {
		return err
	}

	if !upd.Empty() {
		if _, err := a.profiles.UpdateProfile(ctx, u.ID, upd); err != nil {
			return err
		}
		upd.Apply(p)
	}

	return a.reportCompleteness(ctx, p)
}

func (a *App) askField(label, current string) (*string, error) {
	prompt := label
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]", label, current)
	}
	return getOptionalText(a.reader, prompt, a.out)
}

func (a *App) reportCompleteness(ctx context.Context, p *models.UserProfile) error {
	if a.completeness.Recheck(ctx) == profile.Complete {
		fmt.Fprintln(a.out, "Profile complete")
		return nil
	}
	if missing := missingFields(p); len(missing) > 0 {
		fmt.Fprintf(a.out, "Still missing: %s\n", strings.Join(missing, ", "))
	}
	if p.ProfileImageURL == "" {
		fmt.Fprintln(a.out, "Add a picture with 'photo <path>'")
	}
	return nil
}

func missingFields(p *models.UserProfile) []string {
	var out []string
	for _, f := range []struct{ name, value string }{
		{"first name", p.FirstName},
		{"last name", p.LastName},
		{"address", p.Address},
		{"profile picture", p.ProfileImageURL},
	} {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// Photo uploads a new profile picture.
func (a *App) Photo(ctx context.Context, path string) error {
	url, err := a.uploads.Upload(ctx, path, upload.PurposeProfile)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile picture uploaded: %s\n", url)

	if a.completeness.Recheck(ctx) == profile.Complete {
		fmt.Fprintln(a.out, "Profile complete")
	}
	return nil
}

// Banner uploads a new banner image.
func (a *App) Banner(ctx context.Context, path string) error {
	url, err := a.uploads.Upload(ctx, path, upload.PurposeBanner)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Banner uploaded: %s\n", url)
	return nil
}

// Headline sets the one-line profile headline.
func (a *App) Headline(ctx context.Context) error {
	u, err := a.currentUser()
	if err != nil {
		return err
	}
	text, err := getSimpleText(a.reader, "Enter headline", a.out)
	if err != nil {
		return err
	}
	if _, err := a.profiles.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Headline: &text}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Headline saved")
	return nil
}

// Show prints the signed-in user's profile.
func (a *App) Show(ctx context.Context) error {
	u, err := a.currentUser()
	if err != nil {
		return err
	}
	p, err := a.profiles.GetProfile(ctx, u.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Name:     %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(a.out, "E-mail:   %s\n", u.Email)
	fmt.Fprintf(a.out, "Address:  %s\n", p.Address)
	fmt.Fprintf(a.out, "Picture:  %s\n", p.ProfileImageURL)
	if p.BannerImageURL != nil {
		fmt.Fprintf(a.out, "Banner:   %s\n", *p.BannerImageURL)
	}
	if p.Headline != nil {
		fmt.Fprintf(a.out, "Headline: %s\n", *p.Headline)
	}
	return nil
}

// Logout signs out. The local session is dropped even if the backend call
// fails.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// Foreground re-validates the session now instead of waiting for the watcher.
func (a *App) Foreground(ctx context.Context) error {
	a.sessions.OnAppForegrounded(ctx)
	if u := a.sessions.State().User; u != nil {
		fmt.Fprintf(a.out, "Session valid for %s\n", displayName(u))
		return nil
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func displayName(u *models.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
