package auth

import (
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/service"
	"github.com/spec-kit/ticketapp/pkg/util"
)

// SessionChecker reports the state of the current session slot.
type SessionChecker interface {
	CheckSession() (service.SessionStatus, *domain.Session)
}

// Guard gates protected surfaces on a live session. It is the sole
// access-control mechanism: on anything other than an authenticated
// session the caller must redirect to the login entry point and perform
// no further reads.
type Guard struct {
	sessions SessionChecker
}

// NewGuard constructs the guard.
func NewGuard(sessions SessionChecker) *Guard {
	return &Guard{sessions: sessions}
}

// Require returns the active session, or an unauthorized error when the
// slot is absent, expired, or unreadable.
func (g *Guard) Require() (*domain.Session, error) {
	status, session := g.sessions.CheckSession()
	if status != service.SessionAuthenticated {
		return nil, util.NewUnauthorized("not signed in")
	}
	return session, nil
}
