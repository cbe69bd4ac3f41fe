package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arrest-log/internal/rbac"
	"arrest-log/internal/session"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateUsername  = users.ErrDuplicateUsername
	ErrInvalidInput       = errors.New("username and password are required")
)

type LoginResult struct {
	User      users.User `json:"user"`
	SessionID string     `json:"sessionId"`
	Tokens    TokenPair  `json:"tokens"`
}

// Service owns registration, login and the session snapshots derived from
// the canonical user records.
type Service struct {
	users    users.Repository
	sessions session.Store
	tokens   *Manager
	hasher   Hasher
	clock    func() time.Time
}

func NewService(repo users.Repository, sessions session.Store, tokens *Manager, hasher Hasher) *Service {
	return &Service{
		users:    repo,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account with role pending.
func (s *Service) Register(ctx context.Context, username, password string) (users.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return users.User{}, ErrInvalidInput
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return users.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, err
	}

	cred, err := s.hasher.Hash(password)
	if err != nil {
		return users.User{}, fmt.Errorf("hash credential: %w", err)
	}
	u := users.User{
		ID:         uuid.NewString(),
		Username:   username,
		Credential: cred,
		Role:       rbac.RolePending,
		CreatedAt:  s.clock(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return users.User{}, err
	}
	logger.From(ctx).Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, users.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := s.hasher.Verify(u.Credential, password)
	if err != nil {
		logger.From(ctx).Warn("credential verify failed", "user_id", u.ID, "err", err)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}
	if u.Role == rbac.RolePending {
		return LoginResult{}, ErrPendingApproval
	}

	if s.hasher.NeedsUpgrade(u.Credential) {
		s.upgradeCredential(ctx, u, password)
	}

	now := s.clock()
	u, err = s.users.TouchActivity(ctx, u.ID, now)
	if err != nil {
		return LoginResult{}, fmt.Errorf("touch activity: %w", err)
	}

	sess := session.Session{
		ID:        uuid.NewString(),
		User:      u,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("store session: %w", err)
	}

	pair, err := s.tokens.IssuePair(now, u.ID, sess.ID, string(u.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	return LoginResult{User: u, SessionID: sess.ID, Tokens: pair}, nil
}

// upgradeCredential rewrites a legacy credential as bcrypt and drops the
// user's existing sessions. Failure is logged; login proceeds.
func (s *Service) upgradeCredential(ctx context.Context, u users.User, password string) {
	cred, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdateCredential(ctx, u.ID, cred)
	}
	if err != nil {
		logger.From(ctx).Warn("credential upgrade failed", "user_id", u.ID, "err", err)
		return
	}
	if err := s.sessions.DeleteByUser(ctx, u.ID); err != nil {
		logger.From(ctx).Warn("session invalidation failed", "user_id", u.ID, "err", err)
	}
	logger.From(ctx).Info("credential upgraded", "user_id", u.ID)
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// CurrentUser returns the session snapshot; false when there is no session.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (users.User, bool, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return users.User{}, false, nil
	}
	if err != nil {
		return users.User{}, false, err
	}
	return sess.User, true, nil
}

// UpdateActivity stamps now into the canonical record and the snapshot.
// Without a session it does nothing.
func (s *Service) UpdateActivity(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	u, err := s.users.TouchActivity(ctx, sess.User.ID, s.clock())
	if err != nil {
		return err
	}
	err = s.sessions.ReplaceUser(ctx, sessionID, u)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	return err
}

// Refresh issues a new pair for a session that still exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	now := s.clock()
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return TokenPair{}, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, err
	}
	if sess.User.ID != claims.UserID {
		return TokenPair{}, ErrSessionNotFound
	}
	return s.tokens.IssuePair(now, sess.User.ID, sess.ID, string(sess.User.Role))
}

// Authenticate resolves an access token to the identity held in its session.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.tokens.Verify(accessToken, TokenTypeAccess, s.clock())
	if err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return Identity{}, ErrSessionNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	if sess.User.ID != claims.UserID {
		return Identity{}, ErrSessionNotFound
	}
	return Identity{SessionID: sess.ID, User: sess.User}, nil
}

// EnsureBootstrapAdmin creates an admin account when the user table is empty.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	cred, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	u := users.User{
		ID:         uuid.NewString(),
		Username:   username,
		Credential: cred,
		Role:       rbac.RoleAdmin,
		CreatedAt:  s.clock(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, users.ErrDuplicateUsername) {
			return false, nil
		}
		return false, err
	}
	logger.From(ctx).Info("bootstrap admin created", "username", username)
	return true, nil
}
