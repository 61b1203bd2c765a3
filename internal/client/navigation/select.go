// Package navigation maps the session and profile state to the screen stack
// the client shows.
package navigation

import (
	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/client/profile"
)

// Stack names a screen stack.
type Stack string

const (
	// StackSuspended renders nothing while state is still resolving.
	StackSuspended         Stack = "suspended"
	StackUnauthenticated   Stack = "unauthenticated"
	StackProfileCompletion Stack = "profile-completion"
	StackMain              Stack = "main"
)

// Select picks the stack for the given state. A signed-in user whose
// completeness is still Unknown stays suspended.
func Select(loading bool, user *models.User, completeness profile.Completeness) Stack {
	switch {
	case loading:
		return StackSuspended
	case user == nil:
		return StackUnauthenticated
	case completeness == profile.Incomplete:
		return StackProfileCompletion
	case completeness == profile.Complete:
		return StackMain
	default:
		return StackSuspended
	}
}
