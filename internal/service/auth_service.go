package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/config"
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/store"
	"github.com/spec-kit/ticketapp/internal/validation"
	"github.com/spec-kit/ticketapp/pkg/util"
)

// SessionStatus classifies the state of the session slot.
type SessionStatus string

const (
	// SessionAuthenticated means a live session exists.
	SessionAuthenticated SessionStatus = "authenticated"
	// SessionUnauthenticated means no usable session exists.
	SessionUnauthenticated SessionStatus = "unauthenticated"
	// SessionExpired means a session existed but its expiry had passed;
	// callers treat it identically to SessionUnauthenticated.
	SessionExpired SessionStatus = "expired"
)

// AuthService owns account creation, credential verification, session
// issuance, and session-validity checks.
type AuthService struct {
	store      store.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	sessionTTL time.Duration
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		sessionTTL: cfg.Session.TTL(),
	}
}

// SignUpInput carries the sign-up form fields.
type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// SignUp validates the input, accumulating every applicable field error, and
// creates a new account. It performs no storage mutation on failure, and it
// does not log the new user in; session creation is login's responsibility.
func (s *AuthService) SignUp(input SignUpInput) (*domain.User, error) {
	errs := validation.FieldErrors{}
	if validation.Blank(input.Name) {
		errs["name"] = "Full name is required."
	}
	if validation.Blank(input.Email) {
		errs["email"] = "Email address is required."
	} else if !validation.ValidEmail(input.Email) {
		errs["email"] = "Please enter a valid email address."
	}
	if input.Password == "" {
		errs["password"] = "Password is required."
	} else if len(input.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters."
	}
	if input.ConfirmPassword == "" {
		errs["confirmPassword"] = "Please confirm your password."
	} else if input.Password != input.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match."
	}
	if !errs.Empty() {
		s.metrics.RecordError("auth", "sign_up", util.CodeValidationFailed)
		return nil, util.NewValidationError(errs)
	}

	users := s.loadUsers()
	for _, existing := range users {
		if existing.Email == input.Email {
			s.metrics.RecordError("auth", "sign_up", util.CodeConflict)
			return nil, util.NewConflict("email already registered", validation.FieldErrors{
				"email": "Email already exists. Please sign in instead.",
			})
		}
	}

	user := domain.User{
		ID:        domain.NewID(),
		Name:      input.Name,
		Email:     input.Email,
		Password:  input.Password,
		CreatedAt: time.Now().UTC(),
	}
	users = append(users, user)
	if err := s.saveUsers(users); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	s.metrics.RecordOperation("auth", "sign_up")
	s.publish(events.Event{
		Type:   events.EventUserRegistered,
		UserID: user.ID,
		Payload: events.UserRegisteredPayload{
			Name:  user.Name,
			Email: user.Email,
		},
	})
	return &user, nil
}

// LogIn authenticates a user and issues a session. A successful login
// overwrites the single session slot unconditionally.
func (s *AuthService) LogIn(email, password string) (*domain.Session, error) {
	errs := validation.FieldErrors{}
	if validation.Blank(email) {
		errs["email"] = "Email address is required."
	} else if !validation.ValidEmail(email) {
		errs["email"] = "Please enter a valid email address."
	}
	if password == "" {
		errs["password"] = "Password is required."
	}
	if !errs.Empty() {
		s.metrics.RecordError("auth", "log_in", util.CodeValidationFailed)
		return nil, util.NewValidationError(errs)
	}

	var match *domain.User
	for _, user := range s.loadUsers() {
		if user.Email == email && user.Password == password {
			match = &user
			break
		}
	}
	if match == nil {
		s.metrics.RecordError("auth", "log_in", util.CodeInvalidCredentials)
		return nil, util.NewInvalidCredentials("Invalid credentials. Please check your email and password.")
	}

	now := time.Now().UTC()
	session := domain.Session{
		UserID:    match.ID,
		Email:     match.Email,
		Name:      match.Name,
		LoginTime: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.saveSession(session); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", session.UserID))
	s.metrics.RecordOperation("auth", "log_in")
	s.publish(events.Event{
		Type:   events.EventUserLoggedIn,
		UserID: session.UserID,
	})
	return &session, nil
}

// CheckSession reads the session slot and classifies it. Expired or
// unparsable sessions are cleared; corruption is never surfaced to the
// caller as distinct from absence.
func (s *AuthService) CheckSession() (SessionStatus, *domain.Session) {
	raw, ok, err := s.store.Get(store.SlotSession)
	if err != nil {
		s.logger.Error("reading session slot", zap.Error(err))
		return SessionUnauthenticated, nil
	}
	if !ok {
		return SessionUnauthenticated, nil
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		s.logger.Warn("session slot corrupt, clearing", zap.Error(err))
		_ = s.store.Delete(store.SlotSession)
		return SessionUnauthenticated, nil
	}

	if session.Expired(time.Now()) {
		_ = s.store.Delete(store.SlotSession)
		s.logger.Info("session expired", zap.String("user_id", session.UserID))
		s.publish(events.Event{
			Type:   events.EventSessionExpired,
			UserID: session.UserID,
		})
		return SessionExpired, nil
	}

	return SessionAuthenticated, &session
}

// LogOut unconditionally clears the session slot. Idempotent; never fails.
func (s *AuthService) LogOut() {
	_ = s.store.Delete(store.SlotSession)
	s.metrics.RecordOperation("auth", "log_out")
	s.publish(events.Event{Type: events.EventUserLoggedOut})
}

func (s *AuthService) loadUsers() []domain.User {
	raw, ok, err := s.store.Get(store.SlotUsers)
	if err != nil {
		s.logger.Error("reading users slot", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var users []domain.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		s.logger.Warn("users slot corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return users
}

func (s *AuthService) saveUsers(users []domain.User) error {
	encoded, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return s.store.Set(store.SlotUsers, string(encoded))
}

func (s *AuthService) saveSession(session domain.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.store.Set(store.SlotSession, string(encoded))
}

func (s *AuthService) publish(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = domain.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}
