package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/limiter"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// --- settings ---

type fakeSettings struct {
	kv     map[string]string
	getErr error
	setErr error
}

var _ repository.SettingRepository = (*fakeSettings)(nil)

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.kv[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	return v, nil
}
func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.kv == nil {
		f.kv = map[string]string{}
	}
	f.kv[key] = value
	return nil
}
func (f *fakeSettings) All(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.kv))
	for k, v := range f.kv {
		out[k] = v
	}
	return out, nil
}

// --- sessions ---

type fakeSessions struct {
	byToken       map[string]model.Session
	expiredCalls  int
	deleteAllCall int
}

var _ repository.SessionRepository = (*fakeSessions)(nil)

func (f *fakeSessions) Create(_ context.Context, s model.Session) error {
	if f.byToken == nil {
		f.byToken = map[string]model.Session{}
	}
	if _, ok := f.byToken[s.Token]; ok {
		return errs.ErrAlreadyExists
	}
	f.byToken[s.Token] = s
	return nil
}
func (f *fakeSessions) Get(_ context.Context, token string) (*model.Session, error) {
	s, ok := f.byToken[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &s, nil
}
func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}
func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.expiredCalls++
	var n int64
	for k, s := range f.byToken {
		if s.Expired(now) {
			delete(f.byToken, k)
			n++
		}
	}
	return n, nil
}
func (f *fakeSessions) DeleteAll(context.Context) error {
	f.deleteAllCall++
	f.byToken = map[string]model.Session{}
	return nil
}

// --- limiter ---

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastClient   string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, client string) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastClient = client
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

// --- accounts ---

type storedAccount struct {
	acc      model.Account
	envelope string
}

type fakeAccounts struct {
	byID   map[int64]*storedAccount
	nextID int64

	getErr      error
	setCredsErr map[int64]error
	markedAt    map[int64]time.Time
	numberSet map[int64]string
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[int64]*storedAccount{}, markedAt: map[int64]time.Time{}, numberSet: map[int64]string{}}
}

// put stores a ready account under a fixed ID.
func (f *fakeAccounts) put(a model.Account, envelope string) {
	f.byID[a.ID] = &storedAccount{acc: a, envelope: envelope}
	if a.ID > f.nextID {
		f.nextID = a.ID
	}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account, envelope string) error {
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now().UTC()
	f.byID[a.ID] = &storedAccount{acc: *a, envelope: envelope}
	return nil
}
func (f *fakeAccounts) Get(_ context.Context, id int64) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	a := s.acc
	return &a, nil
}
func (f *fakeAccounts) ids() []int64 {
	ids := make([]int64, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
func (f *fakeAccounts) List(context.Context) ([]model.Account, error) {
	var out []model.Account
	for _, id := range f.ids() {
		out = append(out, f.byID[id].acc)
	}
	return out, nil
}
func (f *fakeAccounts) ListActive(context.Context) ([]model.Account, error) {
	var out []model.Account
	for _, id := range f.ids() {
		if f.byID[id].acc.IsActive {
			out = append(out, f.byID[id].acc)
		}
	}
	return out, nil
}
func (f *fakeAccounts) Update(_ context.Context, id int64, u repository.AccountUpdate) error {
	s, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if u.Name != nil {
		s.acc.Name = *u.Name
	}
	if u.Institution != nil {
		s.acc.Institution = *u.Institution
	}
	if u.Owner != nil {
		s.acc.Owner = *u.Owner
	}
	if u.AccountNumber != nil {
		s.acc.AccountNumber = ptr(*u.AccountNumber)
	}
	if u.IsActive != nil {
		s.acc.IsActive = *u.IsActive
	}
	if u.Credentials != nil {
		s.envelope = *u.Credentials
	}
	return nil
}
func (f *fakeAccounts) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}
func (f *fakeAccounts) GetCredentials(_ context.Context, id int64) (string, error) {
	s, ok := f.byID[id]
	if !ok {
		return "", errs.ErrNotFound
	}
	return s.envelope, nil
}
func (f *fakeAccounts) SetCredentials(_ context.Context, id int64, envelope string) error {
	s, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if err := f.setCredsErr[id]; err != nil {
		return err
	}
	s.envelope = envelope
	return nil
}
func (f *fakeAccounts) MarkScraped(_ context.Context, id int64, at time.Time) error {
	s, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	s.acc.LastScrapedAt = &at
	f.markedAt[id] = at
	return nil
}
func (f *fakeAccounts) SetAccountNumberIfEmpty(_ context.Context, id int64, number string) error {
	s, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if s.acc.AccountNumber == nil || *s.acc.AccountNumber == "" {
		s.acc.AccountNumber = ptr(number)
		f.numberSet[id] = number
	}
	return nil
}

// --- transactions ---

type txnKey struct {
	account int64
	date    string
	amount  float64
	desc    string
}

type fakeTxns struct {
	rows   []model.TransactionView
	keys   map[txnKey]bool
	nextID int64

	// owners and names joined into views, by account ID
	owners map[int64]model.Owner
	names  map[int64]string

	failDesc  string // Insert fails for this description
	listErr   error
	updateErr error
	updated   map[int64]string
}

var _ repository.TransactionRepository = (*fakeTxns)(nil)

func newFakeTxns() *fakeTxns {
	return &fakeTxns{keys: map[txnKey]bool{}, owners: map[int64]model.Owner{}, names: map[int64]string{}, updated: map[int64]string{}}
}

func (f *fakeTxns) Insert(ctx context.Context, t *model.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.failDesc != "" && t.Description == f.failDesc {
		return false, errs.ErrValidation
	}
	k := txnKey{t.AccountID, t.Date.Format(time.DateOnly), t.ChargedAmount, t.Description}
	if f.keys[k] {
		return false, nil
	}
	f.keys[k] = true
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, model.TransactionView{Transaction: *t, AccountName: f.names[t.AccountID], AccountOwner: f.owners[t.AccountID]})
	return true, nil
}

// add stores a view directly, bypassing the natural key.
func (f *fakeTxns) add(accountID int64, date time.Time, amount float64, desc string, category *string) {
	f.nextID++
	f.rows = append(f.rows, model.TransactionView{
		Transaction: model.Transaction{
			ID: f.nextID, AccountID: accountID, Date: date, ChargedAmount: amount,
			Description: desc, Category: category, Status: model.StatusCompleted, Type: model.TypeNormal,
		},
		AccountName:  f.names[accountID],
		AccountOwner: f.owners[accountID],
	})
}

func (f *fakeTxns) match(fl model.TransactionFilter) []model.TransactionView {
	var out []model.TransactionView
	for _, r := range f.rows {
		switch {
		case fl.AccountID != nil && r.AccountID != *fl.AccountID,
			fl.Owner != nil && r.AccountOwner != *fl.Owner,
			fl.Category != nil && (r.Category == nil || *r.Category != *fl.Category),
			fl.Status != nil && r.Status != *fl.Status,
			fl.Search != "" && !strings.Contains(strings.ToLower(r.Description), strings.ToLower(fl.Search)),
			fl.StartDate != nil && r.Date.Before(*fl.StartDate),
			fl.EndDate != nil && r.Date.After(*fl.EndDate):
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch fl.Sort {
		case model.SortDateAsc:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.ID < b.ID
		case model.SortAmountAsc:
			return a.ChargedAmount < b.ChargedAmount
		case model.SortAmountDesc:
			return a.ChargedAmount > b.ChargedAmount
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
			return a.ID > b.ID
		}
	})
	return out
}

func (f *fakeTxns) List(_ context.Context, fl model.TransactionFilter) ([]model.TransactionView, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.match(fl)
	if fl.Offset > 0 {
		if fl.Offset >= len(out) {
			return nil, nil
		}
		out = out[fl.Offset:]
	}
	if fl.Limit > 0 && len(out) > fl.Limit {
		out = out[:fl.Limit]
	}
	return out, nil
}
func (f *fakeTxns) Count(_ context.Context, fl model.TransactionFilter) (int, error) {
	return len(f.match(fl)), nil
}
func (f *fakeTxns) UpdateCategory(_ context.Context, id int64, category string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Category = ptr(category)
			f.updated[id] = category
			return nil
		}
	}
	return errs.ErrNotFound
}

// --- rules ---

type fakeRules struct {
	rules   []model.CategoryRule
	nextID  int64
	listErr error
	lists   int
}

var _ repository.RuleRepository = (*fakeRules)(nil)

func (f *fakeRules) List(context.Context) ([]model.CategoryRule, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.CategoryRule(nil), f.rules...), nil
}
func (f *fakeRules) Create(_ context.Context, r *model.CategoryRule) error {
	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now().UTC()
	f.rules = append(f.rules, *r)
	return nil
}
func (f *fakeRules) Delete(_ context.Context, id int64) error {
	for i := range f.rules {
		if f.rules[i].ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

// --- scrape logs ---

type fakeLogs struct {
	rows      []model.ScrapeLog
	createErr error
}

var _ repository.ScrapeLogRepository = (*fakeLogs)(nil)

func (f *fakeLogs) Create(ctx context.Context, l *model.ScrapeLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.createErr != nil {
		return f.createErr
	}
	l.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *l)
	return nil
}
func (f *fakeLogs) ListByAccount(_ context.Context, accountID int64, limit int) ([]model.ScrapeLog, error) {
	var out []model.ScrapeLog
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].AccountID == accountID {
			out = append(out, f.rows[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- messaging ---

type fakeSender struct {
	err   error
	calls int

	token, chatID, text string
}

func (s *fakeSender) SendMessage(_ context.Context, token, chatID, text string) error {
	s.calls++
	s.token, s.chatID, s.text = token, chatID, text
	return s.err
}

type fakeMessenger struct {
	ok    bool
	texts []string
}

var _ Messenger = (*fakeMessenger)(nil)

func (m *fakeMessenger) Send(_ context.Context, text string) bool {
	m.texts = append(m.texts, text)
	return m.ok
}
