package profile

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/session"
)

// StateSource is where the tracker learns about user changes.
type StateSource interface {
	Subscribe(fn func(session.State)) (unsubscribe func())
	State() session.State
}

// Tracker keeps the completeness of the currently published user. It re-runs
// the gate once per change of user identity, not on every publish.
type Tracker struct {
	gate *Gate

	mu     sync.Mutex
	ctx    context.Context
	userID string
	gen    uint64
	value  Completeness
	subs   []func(Completeness)

	wg sync.WaitGroup
}

func NewTracker(g *Gate) *Tracker {
	return &Tracker{gate: g, ctx: context.Background()}
}

// Attach follows src until the returned func is called. Checks started for
// identity changes run with ctx.
func (t *Tracker) Attach(ctx context.Context, src StateSource) (detach func()) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	unsub := src.Subscribe(func(st session.State) { t.Observe(st.User) })
	t.Observe(src.State().User)
	return unsub
}

// OnChange registers fn for every change of the tracked value. fn runs with
// no tracker lock held.
func (t *Tracker) OnChange(fn func(Completeness)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Value returns the completeness of the current user.
func (t *Tracker) Value() Completeness {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Wait blocks until the checks started so far have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Observe feeds the tracker a published user. A new identity resets the value
// to Unknown and starts a check in the background; a nil user resets it to
// Unknown.
func (t *Tracker) Observe(u *models.User) {
	id := ""
	if u != nil {
		id = u.ID
	}

	t.mu.Lock()
	if id == t.userID {
		t.mu.Unlock()
		return
	}
	t.userID = id
	t.gen++
	gen, ctx := t.gen, t.ctx
	notify := t.setLocked(Unknown)
	t.mu.Unlock()
	notify()

	if id == "" {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.apply(gen, t.gate.Check(ctx, id))
	}()
}

// Recheck re-runs the gate for the current user, typically after the profile
// screen saved, and returns the resulting value.
func (t *Tracker) Recheck(ctx context.Context) Completeness {
	t.mu.Lock()
	userID, gen := t.userID, t.gen
	t.mu.Unlock()

	if userID == "" {
		return Unknown
	}
	t.apply(gen, t.gate.Check(ctx, userID))
	return t.Value()
}

// apply stores c unless the user changed since the check started.
func (t *Tracker) apply(gen uint64, c Completeness) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	notify := t.setLocked(c)
	t.mu.Unlock()
	notify()
}

// setLocked stores c and returns the notification to run once t.mu is
// released.
func (t *Tracker) setLocked(c Completeness) (notify func()) {
	if t.value == c {
		return func() {}
	}
	t.value = c
	subs := make([]func(Completeness), len(t.subs))
	copy(subs, t.subs)
	return func() {
		for _, fn := range subs {
			fn(c)
		}
	}
}
