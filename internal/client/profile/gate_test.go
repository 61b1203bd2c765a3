package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeProfile() *models.UserProfile {
	return &models.UserProfile{
		ID:              "u-1",
		FirstName:       "Rex",
		LastName:        "Barker",
		Address:         "1 Kennel Road",
		ProfileImageURL: "https://x.test/storage/v1/object/public/profile-pictures/u-1.jpeg",
	}
}

func TestIsComplete(t *testing.T) {
	assert.True(t, IsComplete(completeProfile()))
	assert.False(t, IsComplete(nil))

	tests := []struct {
		name  string
		clear func(p *models.UserProfile)
	}{
		{"first name", func(p *models.UserProfile) { p.FirstName = "" }},
		{"last name", func(p *models.UserProfile) { p.LastName = "" }},
		{"address", func(p *models.UserProfile) { p.Address = "" }},
		{"profile image url", func(p *models.UserProfile) { p.ProfileImageURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name+" missing", func(t *testing.T) {
			p := completeProfile()
			tt.clear(p)
			assert.False(t, IsComplete(p))
		})
	}

	t.Run("whitespace counts as a value", func(t *testing.T) {
		p := completeProfile()
		p.FirstName = " "
		p.Address = "\t"
		assert.True(t, IsComplete(p))
	})

	t.Run("optional fields do not matter", func(t *testing.T) {
		p := completeProfile()
		p.BannerImageURL = nil
		p.Headline = nil
		assert.True(t, IsComplete(p))
	})
}

// ---- fakes ----

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fakeReader struct {
	mu       sync.Mutex
	Profiles map[string]*models.UserProfile
	Err      error
	Calls    []string

	// block, when set, holds GetProfile for the listed user until closed.
	block map[string]chan struct{}
}

func (f *fakeReader) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, userID)
	ch := f.block[userID]
	f.mu.Unlock()

	if ch != nil {
		<-ch
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.Profiles[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeReader) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

type fakeSource struct {
	state session.State
	subs  []func(session.State)
}

func (f *fakeSource) Subscribe(fn func(session.State)) func() {
	f.subs = append(f.subs, fn)
	return func() { f.subs = nil }
}

func (f *fakeSource) State() session.State { return f.state }

func (f *fakeSource) publish(u *models.User) {
	f.state = session.State{User: u}
	for _, fn := range f.subs {
		fn(f.state)
	}
}

// ---- tests ----

func TestGate_Check(t *testing.T) {
	ctx := context.Background()
	r := &fakeReader{Profiles: map[string]*models.UserProfile{
		"u-1": completeProfile(),
		"u-2": {ID: "u-2", FirstName: "Fido"},
	}}
	g := NewGate(r, nil)

	assert.Equal(t, Complete, g.Check(ctx, "u-1"))
	assert.Equal(t, Incomplete, g.Check(ctx, "u-2"))
	assert.Equal(t, Incomplete, g.Check(ctx, "missing"))

	r.Err = errors.New("network down")
	assert.Equal(t, Incomplete, g.Check(ctx, "u-1"))
}

func TestCompleteness_String(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "incomplete", Incomplete.String())
}

func TestTracker_RunsOncePerIdentity(t *testing.T) {
	r := &fakeReader{Profiles: map[string]*models.UserProfile{"u-1": completeProfile()}}
	tr := NewTracker(NewGate(r, nil))
	src := &fakeSource{}
	detach := tr.Attach(context.Background(), src)
	defer detach()

	assert.Equal(t, Unknown, tr.Value())

	src.publish(&models.User{ID: "u-1"})
	tr.Wait()
	assert.Equal(t, Complete, tr.Value())

	// Token refresh republishes the same identity.
	src.publish(&models.User{ID: "u-1"})
	tr.Wait()
	assert.Equal(t, []string{"u-1"}, r.calls())

	src.publish(nil)
	tr.Wait()
	assert.Equal(t, Unknown, tr.Value())

	src.publish(&models.User{ID: "u-1"})
	tr.Wait()
	assert.Equal(t, []string{"u-1", "u-1"}, r.calls())
}

func TestTracker_AttachChecksCurrentUser(t *testing.T) {
	r := &fakeReader{Profiles: map[string]*models.UserProfile{"u-2": {ID: "u-2"}}}
	tr := NewTracker(NewGate(r, nil))
	src := &fakeSource{state: session.State{User: &models.User{ID: "u-2"}}}

	tr.Attach(context.Background(), src)
	tr.Wait()

	assert.Equal(t, Incomplete, tr.Value())
}

func TestTracker_DropsStaleResults(t *testing.T) {
	release := make(chan struct{})
	r := &fakeReader{
		Profiles: map[string]*models.UserProfile{
			"slow": completeProfile(),
			"fast": {ID: "fast"},
		},
		block: map[string]chan struct{}{"slow": release},
	}
	tr := NewTracker(NewGate(r, nil))
	src := &fakeSource{}
	tr.Attach(context.Background(), src)

	src.publish(&models.User{ID: "slow"})
	src.publish(&models.User{ID: "fast"})

	require.Eventually(t, func() bool { return len(r.calls()) == 2 }, timeout, tick)
	close(release)
	tr.Wait()

	assert.Equal(t, Incomplete, tr.Value())
}

func TestTracker_Recheck(t *testing.T) {
	ctx := context.Background()
	r := &fakeReader{Profiles: map[string]*models.UserProfile{"u-1": {ID: "u-1"}}}
	tr := NewTracker(NewGate(r, nil))
	src := &fakeSource{}
	tr.Attach(ctx, src)

	assert.Equal(t, Unknown, tr.Recheck(ctx))

	var seen []Completeness
	var mu sync.Mutex
	tr.OnChange(func(c Completeness) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c)
	})

	src.publish(&models.User{ID: "u-1"})
	tr.Wait()
	assert.Equal(t, Incomplete, tr.Value())

	r.mu.Lock()
	r.Profiles["u-1"] = completeProfile()
	r.mu.Unlock()

	assert.Equal(t, Complete, tr.Recheck(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Completeness{Incomplete, Complete}, seen)
}
