package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"student-dashboard/internal/shared/auth"
	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/server/middleware"
)

// ErrInvalidLogin reports a malformed login request.
var ErrInvalidLogin = failure.Validation("a valid email is required")

// Manager issues, resolves and ends sessions. Login is a mock: any
// well-formed email is accepted and mapped to a stable user id.
type Manager struct {
	Store  Store
	Signer *auth.Signer
	now    func() time.Time
}

// NewManager constructs a Manager.
func NewManager(store Store, signer *auth.Signer) *Manager {
	return &Manager{Store: store, Signer: signer, now: time.Now}
}

// UserIDFor derives the stable user id of an email address.
func UserIDFor(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return "user:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}

// Login creates and persists a new session for email.
func (m *Manager) Login(ctx context.Context, email, name string) (Session, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Session{}, ErrInvalidLogin
	}
	email = strings.ToLower(addr.Address)
	name = strings.TrimSpace(name)
	if name == "" {
		name = addr.Name
	}
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	user := User{
		ID:        UserIDFor(email),
		Email:     email,
		Name:      name,
		CreatedAt: m.now().UTC(),
	}
	sid := uuid.NewString()
	token, err := m.Signer.Sign(user.ID, sid, user.Email, user.Name)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, User: user}
	if err := m.Store.Save(ctx, sid, sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Resolve verifies token and checks it is still the live token of its session.
func (m *Manager) Resolve(ctx context.Context, token string) (middleware.Identity, error) {
	claims, err := m.Signer.Verify(token)
	if err != nil {
		return middleware.Identity{}, err
	}
	sess, err := m.Store.Load(ctx, claims.ID)
	if err != nil {
		return middleware.Identity{}, err
	}
	if sess.Token != token || sess.User.ID != claims.Subject {
		return middleware.Identity{}, ErrNoSession
	}
	return middleware.Identity{
		UserID:    sess.User.ID,
		Email:     sess.User.Email,
		Name:      sess.User.Name,
		SessionID: claims.ID,
	}, nil
}

// Current loads the session by id.
func (m *Manager) Current(ctx context.Context, sid string) (Session, error) {
	if sid == "" {
		return Session{}, ErrNoSession
	}
	return m.Store.Load(ctx, sid)
}

// Logout ends the session. Ending an absent session is not an error.
func (m *Manager) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := m.Store.Clear(ctx, sid); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}

var _ middleware.Resolver = (*Manager)(nil)
