package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/service"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestAuth_SetupLoginLogout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.auth.setup = false

	rec := f.do(http.MethodGet, "/api/auth", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"isSetup": false, "isAuthenticated": false}, decode(t, rec))

	rec = f.do(http.MethodPut, "/api/auth", `{"password":"123"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/auth", `{"password":"`+masterPw+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	require.Equal(t, goodToken, ck.Value)
	require.True(t, ck.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	require.Equal(t, 7*24*60*60, ck.MaxAge)
	require.Equal(t, "/", ck.Path)

	rec = f.do(http.MethodPut, "/api/auth", `{"password":"another-pw"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth", "", goodToken)
	require.Equal(t, map[string]any{"isSetup": true, "isAuthenticated": true}, decode(t, rec))

	rec = f.do(http.MethodPost, "/api/auth", `{"password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "סיסמה שגויה", decode(t, rec)["error"])
	require.Equal(t, "192.0.2.1", f.auth.lastIP)

	rec = f.do(http.MethodPost, "/api/auth", `{}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth", `{"password":"`+masterPw+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, goodToken, sessionCookie(rec).Value)

	rec = f.do(http.MethodDelete, "/api/auth", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{goodToken}, f.auth.loggedOut)
	require.Less(t, sessionCookie(rec).MaxAge, 0)
}

func TestAuth_RateLimited(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.auth.loginErr = fmt.Errorf("login: %w", errs.ErrRateLimited)

	rec := f.do(http.MethodPost, "/api/auth", `{"password":"`+masterPw+`"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Nil(t, sessionCookie(rec))
}

func TestAuth_ChangePassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.auth.rotation = service.RotationReport{Reencrypted: 2, Failed: []int64{5}}

	rec := f.do(http.MethodPost, "/api/auth/password", `{"oldPassword":"a"}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/password", `{"oldPassword":"a","newPassword":"bbbbbb"}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.EqualValues(t, 2, body["reencrypted"])
	require.Equal(t, []any{float64(5)}, body["failedAccounts"])
	require.Less(t, sessionCookie(rec).MaxAge, 0)

	f.auth.rotateErr = errs.ErrUnauthorized
	rec = f.do(http.MethodPost, "/api/auth/password", `{"oldPassword":"a","newPassword":"bbbbbb"}`, goodToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, path := range []string{"/api/accounts", "/api/transactions", "/api/stats", "/api/settings", "/api/categories"} {
		rec := f.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = f.do(http.MethodGet, path, "", "stale")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = f.do(http.MethodGet, path, "", goodToken)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := f.do(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAccounts_CRUD(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/accounts",
		`{"name":"ישראכרט","companyId":"isracard","owner":"wife","credentials":{"id":"1","card6Digits":"123456","password":"p"}}`,
		goodToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, masterPw, f.accounts.lastPw, "credentials are sealed under the session's master password")
	require.Equal(t, model.Isracard, f.accounts.lastNew.Institution)
	acc := decode(t, rec)["account"].(map[string]any)
	require.Equal(t, "isracard", acc["companyId"])
	require.NotContains(t, acc, "credentials")

	rec = f.do(http.MethodPost, "/api/accounts", `{"name":"x"}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/accounts", "", goodToken)
	require.Len(t, decode(t, rec)["accounts"], 2)

	rec = f.do(http.MethodGet, "/api/accounts/abc", "", goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/accounts/99", "", goodToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/api/accounts/1", `{"isActive":false}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, *f.accounts.lastP.IsActive)
	require.Nil(t, f.accounts.lastP.Name)

	f.accounts.err = fmt.Errorf("update: %w", errs.ErrDecryption)
	rec = f.do(http.MethodPut, "/api/accounts/1", `{"companyId":"max"}`, goodToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, service.MsgDecryption, decode(t, rec)["error"])
	f.accounts.err = nil

	rec = f.do(http.MethodGet, "/api/accounts/1/logs?limit=5", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode(t, rec)["logs"].([]any)
	require.EqualValues(t, 5, logs[0].(map[string]any)["transactionsCount"])

	rec = f.do(http.MethodDelete, "/api/accounts/1", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodDelete, "/api/accounts/1", "", goodToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/institutions", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["institutions"], len(model.Institutions()))
}

func TestScrape(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/scrape", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, f.scrape.gotID)
	require.Equal(t, masterPw, f.scrape.gotPw)
	body := decode(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, map[string]any{
		"totalAccounts": float64(1), "successCount": float64(1),
		"errorCount": float64(0), "totalTransactions": float64(3),
	}, body["summary"])
	require.Len(t, body["results"], 1)

	rec = f.do(http.MethodPost, "/api/scrape", `{"accountId":7}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), *f.scrape.gotID)

	f.scrape.err = fmt.Errorf("%w: no active accounts", errs.ErrNotFound)
	rec = f.do(http.MethodPost, "/api/scrape", `{}`, goodToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/scrape", `{"accountId":`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions_QueryParsing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodGet,
		"/api/transactions?accountId=3&owner=wife&category=food&search=+shop+&startDate=2024-01-01&endDate=2024-01-31&page=2&limit=20&sort=amount_asc",
		"", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)

	got := f.txns.filter
	require.Equal(t, int64(3), *got.AccountID)
	require.Equal(t, model.OwnerWife, *got.Owner)
	require.Equal(t, "food", *got.Category)
	require.Equal(t, "shop", got.Search)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *got.StartDate)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *got.EndDate)
	require.Equal(t, model.SortAmountAsc, got.Sort)
	require.Equal(t, 20, got.Limit)
	require.Equal(t, 2, f.txns.page)
	require.Empty(t, decode(t, rec)["transactions"])

	rec = f.do(http.MethodGet, "/api/transactions?owner=all", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, f.txns.filter.Owner)

	for _, q := range []string{"owner=nobody", "startDate=01-01-2024", "page=x", "accountId=x", "sort=random"} {
		rec = f.do(http.MethodGet, "/api/transactions?"+q, "", goodToken)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/stats?owner=mine&period=week", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "mine", f.stats.owner)
	require.Equal(t, service.PeriodWeek, f.stats.period)
	body := decode(t, rec)
	require.Equal(t, -12.5, body["totalSpending"])
	require.EqualValues(t, 1, body["pendingTransactions"])
	require.NotNil(t, body["spendingByCategory"])

	rec = f.do(http.MethodGet, "/api/stats?owner=neighbour", "", goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/settings", "", goodToken)
	require.Equal(t, map[string]any{"telegram_chat_id": "42"}, decode(t, rec))

	rec = f.do(http.MethodPut, "/api/settings", `{"telegram_bot_token":"t","daily_report_time":"08:30","retries":3}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{"telegram_bot_token": "t", "daily_report_time": "08:30"}, f.settings.updated)
	require.False(t, f.settings.tested)
	require.NotContains(t, decode(t, rec), "testSent")

	f.settings.testOK = true
	rec = f.do(http.MethodPut, "/api/settings", `{"test":true}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.settings.tested)
	require.Equal(t, true, decode(t, rec)["testSent"])
}

func TestCategoryRules(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.rules.applied = 4

	rec := f.do(http.MethodPost, "/api/settings/categories", `{"pattern":"gym","category":"ספורט","priority":5}`, goodToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "gym", decode(t, rec)["rule"].(map[string]any)["pattern"])

	rec = f.do(http.MethodPost, "/api/settings/categories", `{"pattern":"gym"}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/settings/categories", "", goodToken)
	require.Len(t, decode(t, rec)["rules"], 1)

	rec = f.do(http.MethodDelete, "/api/settings/categories", `{}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodDelete, "/api/settings/categories", `{"id":1}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{1}, f.rules.deleted)

	rec = f.do(http.MethodPost, "/api/settings/categories/apply", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 4, decode(t, rec)["updated"])

	rec = f.do(http.MethodGet, "/api/categories", "", goodToken)
	require.NotEmpty(t, decode(t, rec)["categories"])
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", errs.ErrValidation), http.StatusBadRequest},
		{errs.ErrUnsupportedInstitution, http.StatusBadRequest},
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrRateLimited, http.StatusTooManyRequests},
		{errs.ErrAlreadyExists, http.StatusConflict},
		{errs.ErrDecryption, http.StatusUnprocessableEntity},
		{errs.ErrExternalService, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, msg := statusOf(tc.err)
		require.Equal(t, tc.code, code, tc.err.Error())
		require.NotEmpty(t, msg)
	}

	_, msg := statusOf(errors.New("pq: password=secret"))
	require.Equal(t, service.MsgInternal, msg, "internal detail never leaks")
}
