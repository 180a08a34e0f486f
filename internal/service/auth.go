// Package service contains application services: master-password auth, the
// account credential store, scrape orchestration, ingestion, rules, settings,
// stats and the daily report.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgcrypto "github.com/and161185/kesef/internal/crypto"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/limiter"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
	"go.uber.org/zap"
)

// MinPasswordLen is the shortest accepted master password.
const MinPasswordLen = 6

// AuthService defines master-password bootstrap, login and session operations.
type AuthService interface {
	// IsSetup reports whether a master password has been set.
	IsSetup(ctx context.Context) (bool, error)
	// Setup stores the first master password and opens a session.
	Setup(ctx context.Context, password string) (model.Session, error)
	// Login applies rate limiting per client address and opens a session.
	Login(ctx context.Context, password, clientIP string) (model.Session, error)
	// Resolve returns the live session for token.
	Resolve(ctx context.Context, token string) (*model.Session, error)
	// Logout drops the session.
	Logout(ctx context.Context, token string) error
	// ChangeMasterPassword rotates the master password and re-encrypts stored credentials.
	ChangeMasterPassword(ctx context.Context, oldPassword, newPassword string) (RotationReport, error)
}

// RotationReport lists accounts whose credentials could not be carried over to a new master password.
type RotationReport struct {
	Reencrypted int
	Failed      []int64
}

// credentialRotator re-encrypts every stored envelope.
type credentialRotator interface {
	Reencrypt(ctx context.Context, oldPassword, newPassword string) (RotationReport, error)
}

type AuthServiceImpl struct {
	settings repository.SettingRepository
	sessions repository.SessionRepository
	creds    credentialRotator
	lim      limiter.Limiter
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex // serializes setup and rotation
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	settings repository.SettingRepository,
	sessions repository.SessionRepository,
	creds credentialRotator,
	lim limiter.Limiter,
	ttl time.Duration,
	logger *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		settings: settings,
		sessions: sessions,
		creds:    creds,
		lim:      lim,
		ttl:      ttl,
		now:      time.Now,
		log:      logger.Named("auth"),
	}
}

// IsSetup checks for the reserved hash setting.
func (s *AuthServiceImpl) IsSetup(ctx context.Context) (bool, error) {
	_, err := s.settings.Get(ctx, model.SettingMasterPasswordHash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Setup stores the hash of the first master password and logs in.
func (s *AuthServiceImpl) Setup(ctx context.Context, password string) (model.Session, error) {
	if len(password) < MinPasswordLen {
		return model.Session{}, fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinPasswordLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done, err := s.IsSetup(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if done {
		return model.Session{}, fmt.Errorf("%w: master password is already set", errs.ErrAlreadyExists)
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.settings.Set(ctx, model.SettingMasterPasswordHash, hash); err != nil {
		return model.Session{}, err
	}
	return s.openSession(ctx, password)
}

// Login authenticates with rate limiting by client address.
func (s *AuthServiceImpl) Login(ctx context.Context, password, clientIP string) (model.Session, error) {
	if password == "" {
		return model.Session{}, fmt.Errorf("%w: password is required", errs.ErrValidation)
	}

	allowed, _, err := s.lim.Allow(ctx, clientIP)
	if err != nil {
		return model.Session{}, err
	}
	if !allowed {
		return model.Session{}, errs.ErrRateLimited
	}

	stored, err := s.settings.Get(ctx, model.SettingMasterPasswordHash)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Session{}, fmt.Errorf("%w: master password is not set yet", errs.ErrValidation)
	}
	if err != nil {
		return model.Session{}, err
	}

	if !pkgcrypto.VerifyPassword(password, stored) {
		blocked, _, ferr := s.lim.Failure(ctx, clientIP)
		if ferr != nil {
			s.log.Warn("login failure not recorded", zap.Error(ferr))
		}
		if blocked {
			return model.Session{}, errs.ErrRateLimited
		}
		return model.Session{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, clientIP); err != nil {
		s.log.Warn("login limiter not reset", zap.Error(err))
	}

	return s.openSession(ctx, password)
}

// Resolve sweeps expired sessions, then looks token up.
func (s *AuthServiceImpl) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, errs.ErrUnauthorized
	}
	now := s.now()
	if _, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(now) {
		return nil, errs.ErrUnauthorized
	}
	return sess, nil
}

// Logout deletes the session; unknown tokens are ignored.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ChangeMasterPassword verifies the old password, re-encrypts every account's
// credentials, stores the new hash and drops all sessions.
// Accounts whose envelope no longer opens under the old password keep it and are reported.
// Once started, the rotation is not cancelled with ctx.
func (s *AuthServiceImpl) ChangeMasterPassword(ctx context.Context, oldPassword, newPassword string) (RotationReport, error) {
	if len(newPassword) < MinPasswordLen {
		return RotationReport{}, fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinPasswordLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.settings.Get(ctx, model.SettingMasterPasswordHash)
	if errors.Is(err, errs.ErrNotFound) {
		return RotationReport{}, fmt.Errorf("%w: master password is not set yet", errs.ErrValidation)
	}
	if err != nil {
		return RotationReport{}, err
	}
	if !pkgcrypto.VerifyPassword(oldPassword, stored) {
		return RotationReport{}, errs.ErrUnauthorized
	}
	hash, err := pkgcrypto.HashPassword(newPassword)
	if err != nil {
		return RotationReport{}, err
	}

	ctx = context.WithoutCancel(ctx)
	rep, err := s.creds.Reencrypt(ctx, oldPassword, newPassword)
	if err != nil {
		return RotationReport{}, err
	}
	if err := s.settings.Set(ctx, model.SettingMasterPasswordHash, hash); err != nil {
		if _, rerr := s.creds.Reencrypt(ctx, newPassword, oldPassword); rerr != nil {
			s.log.Error("credentials left under the new password", zap.Error(rerr))
		}
		return RotationReport{}, err
	}
	if err := s.sessions.DeleteAll(ctx); err != nil {
		return rep, err
	}
	return rep, nil
}

func (s *AuthServiceImpl) openSession(ctx context.Context, password string) (model.Session, error) {
	token, err := pkgcrypto.NewToken()
	if err != nil {
		return model.Session{}, err
	}
	now := s.now()
	sess := model.Session{
		Token:          token,
		MasterPassword: password,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}
