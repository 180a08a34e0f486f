package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgcrypto "github.com/and161185/kesef/internal/crypto"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
	"go.uber.org/zap"
)

// AccountService manages accounts and owns the encrypted credentials envelope.
// No method returns the envelope itself.
type AccountService interface {
	// Create validates credentials against the institution, encrypts them and stores the account.
	Create(ctx context.Context, in model.NewAccount, masterPassword string) (*model.Account, error)
	// Get returns one account.
	Get(ctx context.Context, id int64) (*model.Account, error)
	// List returns all accounts.
	List(ctx context.Context) ([]model.Account, error)
	// Update applies a partial update; new credentials are encrypted under masterPassword.
	Update(ctx context.Context, id int64, p model.AccountPatch, masterPassword string) (*model.Account, error)
	// Delete removes the account with its transactions and logs.
	Delete(ctx context.Context, id int64) error
	// GetDecryptedCredentials opens the stored envelope.
	GetDecryptedCredentials(ctx context.Context, id int64, masterPassword string) (model.Credentials, error)
	// SetCredentials re-encrypts and overwrites the envelope.
	SetCredentials(ctx context.Context, id int64, creds model.Credentials, masterPassword string) error
	// Logs returns the account's scrape audit trail, newest first.
	Logs(ctx context.Context, id int64, limit int) ([]model.ScrapeLog, error)
}

type AccountServiceImpl struct {
	repo repository.AccountRepository
	logs repository.ScrapeLogRepository
	log  *zap.Logger
}

// NewAccountService constructs AccountService.
func NewAccountService(repo repository.AccountRepository, logs repository.ScrapeLogRepository, logger *zap.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{repo: repo, logs: logs, log: logger.Named("accounts")}
}

// Create validates the creation intent and stores it with encrypted credentials.
func (s *AccountServiceImpl) Create(ctx context.Context, in model.NewAccount, masterPassword string) (*model.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	if err := validateOwner(in.Owner); err != nil {
		return nil, err
	}
	if err := in.Credentials.Validate(in.Institution); err != nil {
		return nil, err
	}
	env, err := seal(in.Credentials, masterPassword)
	if err != nil {
		return nil, err
	}
	a := &model.Account{
		Name:          name,
		Institution:   in.Institution,
		Owner:         in.Owner,
		AccountNumber: blankToNil(in.AccountNumber),
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, a, env); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns the account or errs.ErrNotFound.
func (s *AccountServiceImpl) Get(ctx context.Context, id int64) (*model.Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns all accounts ordered by ID.
func (s *AccountServiceImpl) List(ctx context.Context) ([]model.Account, error) {
	return s.repo.List(ctx)
}

// Update validates the patch and stores it.
// Changing the institution without new credentials requires the stored ones to fit the new institution.
func (s *AccountServiceImpl) Update(ctx context.Context, id int64, p model.AccountPatch, masterPassword string) (*model.Account, error) {
	if p.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", errs.ErrValidation)
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u := repository.AccountUpdate{IsActive: p.IsActive, Institution: p.Institution}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", errs.ErrValidation)
		}
		u.Name = &name
	}
	if p.Owner != nil {
		if err := validateOwner(*p.Owner); err != nil {
			return nil, err
		}
		u.Owner = p.Owner
	}
	if p.AccountNumber != nil {
		num := strings.TrimSpace(*p.AccountNumber)
		u.AccountNumber = &num
	}

	inst := cur.Institution
	if p.Institution != nil {
		inst = *p.Institution
		if !inst.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", errs.ErrValidation, errs.ErrUnsupportedInstitution, string(inst))
		}
	}

	switch {
	case p.Credentials != nil:
		if err := p.Credentials.Validate(inst); err != nil {
			return nil, err
		}
		env, err := seal(p.Credentials, masterPassword)
		if err != nil {
			return nil, err
		}
		u.Credentials = &env
	case inst != cur.Institution:
		old, err := s.GetDecryptedCredentials(ctx, id, masterPassword)
		if err != nil {
			return nil, err
		}
		if err := old.Validate(inst); err != nil {
			return nil, fmt.Errorf("new institution needs new credentials: %w", err)
		}
	}

	if err := s.repo.Update(ctx, id, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the account.
func (s *AccountServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// GetDecryptedCredentials returns the account's credentials or an errs.ErrDecryption error
// when the envelope does not open under masterPassword.
func (s *AccountServiceImpl) GetDecryptedCredentials(ctx context.Context, id int64, masterPassword string) (model.Credentials, error) {
	env, err := s.repo.GetCredentials(ctx, id)
	if err != nil {
		return nil, err
	}
	return open(env, masterPassword)
}

// SetCredentials validates creds against the account's institution and overwrites the envelope.
func (s *AccountServiceImpl) SetCredentials(ctx context.Context, id int64, creds model.Credentials, masterPassword string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := creds.Validate(a.Institution); err != nil {
		return err
	}
	env, err := seal(creds, masterPassword)
	if err != nil {
		return err
	}
	return s.repo.SetCredentials(ctx, id, env)
}

// Logs returns scrape logs of an existing account.
func (s *AccountServiceImpl) Logs(ctx context.Context, id int64, limit int) ([]model.ScrapeLog, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.logs.ListByAccount(ctx, id, limit)
}

// Reencrypt moves every envelope from oldPassword to newPassword.
// Envelopes that do not open under oldPassword are left as they are and reported.
// All envelopes are sealed before the first write; when a write fails, the ones
// already written are restored, so either every openable envelope moves or none does.
func (s *AccountServiceImpl) Reencrypt(ctx context.Context, oldPassword, newPassword string) (RotationReport, error) {
	type rewrite struct {
		id       int64
		old, new string
	}
	var rep RotationReport
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return rep, err
	}

	plan := make([]rewrite, 0, len(accounts))
	for _, a := range accounts {
		env, err := s.repo.GetCredentials(ctx, a.ID)
		if err != nil {
			return RotationReport{}, err
		}
		creds, err := open(env, oldPassword)
		if errors.Is(err, errs.ErrDecryption) {
			s.log.Warn("credentials not re-encrypted", zap.Int64("account_id", a.ID), zap.Error(err))
			rep.Failed = append(rep.Failed, a.ID)
			continue
		}
		if err != nil {
			return RotationReport{}, err
		}
		sealed, err := seal(creds, newPassword)
		if err != nil {
			return RotationReport{}, err
		}
		plan = append(plan, rewrite{id: a.ID, old: env, new: sealed})
	}

	for i, w := range plan {
		if err := s.repo.SetCredentials(ctx, w.id, w.new); err != nil {
			for _, done := range plan[:i] {
				if rerr := s.repo.SetCredentials(ctx, done.id, done.old); rerr != nil {
					s.log.Error("credentials not restored", zap.Int64("account_id", done.id), zap.Error(rerr))
				}
			}
			return RotationReport{}, fmt.Errorf("re-encrypt account %d: %w", w.id, err)
		}
	}
	rep.Reencrypted = len(plan)
	return rep, nil
}

func seal(creds model.Credentials, password string) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	return pkgcrypto.Encrypt(string(raw), password)
}

func open(env, password string) (model.Credentials, error) {
	plain, err := pkgcrypto.Decrypt(env, password)
	if err != nil {
		return nil, err
	}
	var creds model.Credentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, fmt.Errorf("%w: credentials payload: %v", errs.ErrDecryption, err)
	}
	return creds, nil
}

func validateOwner(o model.Owner) error {
	if !o.Valid() {
		return fmt.Errorf("%w: owner must be %q or %q", errs.ErrValidation, model.OwnerMine, model.OwnerWife)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
