package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

func TestToAccount_HasNoCredentials(t *testing.T) {
	t.Parallel()

	num := "1234"
	a := model.Account{
		ID: 3, Name: "כרטיס", Institution: model.Isracard, Owner: model.OwnerWife,
		AccountNumber: &num, IsActive: true,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(ToAccount(a))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, "isracard", m["companyId"])
	require.Equal(t, "wife", m["owner"])
	require.Equal(t, "1234", m["accountNumber"])
	require.Nil(t, m["lastScrapedAt"])
	require.NotContains(t, m, "credentials")
	require.NotContains(t, m, "encryptedCredentials")

	require.NotNil(t, ToAccounts(nil))
}

func TestCreateAccountRequest(t *testing.T) {
	t.Parallel()

	_, err := CreateAccountRequest{Name: "x", CompanyID: "max", Owner: "mine"}.NewAccount()
	require.ErrorIs(t, err, errs.ErrValidation)

	in, err := CreateAccountRequest{
		Name: "x", CompanyID: "max", Owner: "mine",
		Credentials: map[string]string{"username": "u", "password": "p"},
	}.NewAccount()
	require.NoError(t, err)
	require.Equal(t, model.Max, in.Institution)
	require.Equal(t, model.OwnerMine, in.Owner)
	require.Equal(t, "u", in.Credentials["username"])
}

func TestUpdateAccountRequest_Patch(t *testing.T) {
	t.Parallel()

	var r UpdateAccountRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &r))
	require.True(t, r.Patch().Empty())

	require.NoError(t, json.Unmarshal([]byte(`{"companyId":"leumi","owner":"wife","isActive":false}`), &r))
	p := r.Patch()
	require.False(t, p.Empty())
	require.Equal(t, model.Leumi, *p.Institution)
	require.Equal(t, model.OwnerWife, *p.Owner)
	require.False(t, *p.IsActive)
	require.Nil(t, p.Credentials)
}

func TestToTransactionPage_Dates(t *testing.T) {
	t.Parallel()

	pd := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	n, total := 2, 6
	p := ToTransactionPage(model.TransactionPage{
		Items: []model.TransactionView{{
			Transaction: model.Transaction{
				ID: 1, AccountID: 2, Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				ProcessedDate: &pd, ChargedAmount: -42.5, Description: "שופרסל",
				Type: model.TypeInstallments, InstallmentNumber: &n, InstallmentTotal: &total,
				Status: model.StatusPending,
			},
			AccountName:  "עו\"ש",
			AccountOwner: model.OwnerMine,
		}},
		Total: 1, Page: 1, TotalPages: 1,
	})
	require.Len(t, p.Transactions, 1)
	tx := p.Transactions[0]
	require.Equal(t, "2024-01-05", tx.Date)
	require.Equal(t, "2024-02-10", *tx.ProcessedDate)
	require.Equal(t, "installments", tx.Type)
	require.Equal(t, "pending", tx.Status)
	require.Equal(t, "mine", tx.AccountOwner)

	require.NotNil(t, ToTransactionPage(model.TransactionPage{}).Transactions)
}

func TestToStats(t *testing.T) {
	t.Parallel()

	s := ToStats(model.Stats{
		TotalSpending:      -100,
		SpendingByCategory: []model.CategoryTotal{{Category: "אחר", Total: -100, Count: 2}},
		SpendingByAccount:  []model.AccountTotal{{AccountID: 1, AccountName: "a", Total: -100}},
		DailySpending:      []model.DailyTotal{{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Total: -100}},
	})
	require.Equal(t, "2024-03-01", s.DailySpending[0].Date)
	require.Equal(t, 2, s.SpendingByCategory[0].Count)
	require.Equal(t, int64(1), s.SpendingByAccount[0].AccountID)
	require.NotNil(t, s.RecentTransactions)
}

func TestToScrapeResponse(t *testing.T) {
	t.Parallel()

	var sum model.ScrapeSummary
	sum.RunID = "run-1"
	sum.Add(model.ScrapeOutcome{AccountID: 1, Status: model.ScrapeSuccess, TransactionsCount: 4})
	sum.Add(model.ScrapeOutcome{AccountID: 2, Status: model.ScrapeError, ErrorMessage: "INVALID_PASSWORD"})

	r := ToScrapeResponse(sum)
	require.True(t, r.Success)
	require.Equal(t, ScrapeCounts{TotalAccounts: 2, SuccessCount: 1, ErrorCount: 1, TotalTransactions: 4}, r.Summary)
	require.Equal(t, "INVALID_PASSWORD", r.Results[1].ErrorMessage)

	raw, err := json.Marshal(r.Results[0])
	require.NoError(t, err)
	require.NotContains(t, string(raw), "errorMessage")
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("")
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = ParseDate("2024-12-31")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *d)

	_, err = ParseDate("31/12/2024")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestToCategories(t *testing.T) {
	t.Parallel()

	out := ToCategories(categorize.Builtin)
	require.Len(t, out, len(categorize.Builtin))
	require.Equal(t, categorize.Builtin[0].Name, out[0].Name)
	require.NotEmpty(t, out[0].Color)
}

func TestToInstitutions(t *testing.T) {
	t.Parallel()

	out := ToInstitutions()
	require.Len(t, out, len(model.Institutions()))
	for _, i := range out {
		if i.ID == string(model.Isracard) {
			require.Equal(t, []string{"id", "card6Digits", "password"}, i.Fields)
			return
		}
	}
	t.Fatalf("isracard missing")
}
