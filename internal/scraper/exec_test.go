package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// TestHelperProcess is the fake scraper executed by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("KESEF_SCRAPER_HELPER") != "1" {
		return
	}
	in, _ := io.ReadAll(os.Stdin)
	var req request
	_ = json.Unmarshal(in, &req)

	switch os.Getenv("KESEF_SCRAPER_MODE") {
	case "ok":
		fmt.Printf(`{"success":true,"accounts":[{"accountNumber":"4580-%s","txns":[
 {"identifier":123456,"type":"normal","date":"2024-01-05T22:00:00.000Z","processedDate":"2024-02-10T00:00:00.000Z",
  "originalAmount":-120.5,"originalCurrency":"ILS","chargedAmount":-120.5,"description":"שופרסל דיל","status":"completed"},
 {"identifier":"abc","type":"installments","date":"2024-01-06T10:00:00Z","originalAmount":-900,"originalCurrency":"USD",
  "chargedAmount":-300,"description":"KSP","memo":"תשלום 1 מתוך 3","status":"pending","installments":{"number":1,"total":3}},
 {"identifier":null,"date":"2024-01-07","originalAmount":10,"chargedAmount":10,"description":"refund"}
]}]}`, req.Credentials["username"])
	case "fail":
		fmt.Print(`{"success":false,"errorType":"INVALID_PASSWORD","errorMessage":"bad login"}`)
	case "echo":
		out, _ := json.Marshal(map[string]any{"success": false, "errorType": "ECHO", "errorMessage": string(in)})
		_, _ = os.Stdout.Write(out)
	case "garbage":
		fmt.Print("not json")
	case "crash":
		fmt.Fprint(os.Stderr, "TypeError: boom")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	}
	os.Exit(0)
}

func helper(t *testing.T, mode string, timeout time.Duration) *Exec {
	t.Helper()
	e := NewExec(os.Args[0], []string{"-test.run=TestHelperProcess"}, timeout, zaptest.NewLogger(t))
	e.Env = []string{"KESEF_SCRAPER_HELPER=1", "KESEF_SCRAPER_MODE=" + mode}
	return e
}

func req() model.ScrapeRequest {
	return model.ScrapeRequest{
		Institution: model.Max,
		StartDate:   time.Date(2023, 11, 6, 0, 0, 0, 0, time.UTC),
		Credentials: model.Credentials{"username": "dana", "password": "pw"},
	}
}

func TestExec_Success(t *testing.T) {
	accounts, err := helper(t, "ok", time.Minute).Scrape(context.Background(), req())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "4580-dana", accounts[0].AccountNumber)

	txns := accounts[0].Txns
	require.Len(t, txns, 3)

	require.Equal(t, "123456", *txns[0].Identifier)
	require.Equal(t, time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC), txns[0].Date.UTC())
	require.NotNil(t, txns[0].ProcessedDate)
	require.Nil(t, txns[0].Installments)
	require.Equal(t, -120.5, txns[0].ChargedAmount)

	require.Equal(t, "abc", *txns[1].Identifier)
	require.Equal(t, &model.Installments{Number: 1, Total: 3}, txns[1].Installments)
	require.Equal(t, "pending", txns[1].Status)
	require.Equal(t, "USD", txns[1].OriginalCurrency)

	require.Nil(t, txns[2].Identifier)
	require.Nil(t, txns[2].ProcessedDate)
	require.Equal(t, "", txns[2].Status)
}

func TestExec_RequestShape(t *testing.T) {
	_, err := helper(t, "echo", 2*time.Minute).Scrape(context.Background(), req())
	var f *Failure
	require.ErrorAs(t, err, &f)

	var got request
	require.NoError(t, json.Unmarshal([]byte(f.Message), &got))
	require.Equal(t, "max", got.CompanyID)
	require.Equal(t, "2023-11-06T00:00:00Z", got.StartDate)
	require.Equal(t, map[string]string{"username": "dana", "password": "pw"}, got.Credentials)
	require.False(t, got.Options.CombineInstallments)
	require.False(t, got.Options.ShowBrowser)
	require.Equal(t, int64(120000), got.Options.Timeout)
}

func TestExec_ReportedFailure(t *testing.T) {
	_, err := helper(t, "fail", time.Minute).Scrape(context.Background(), req())
	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, "INVALID_PASSWORD", f.Type)
	require.Equal(t, "INVALID_PASSWORD: bad login", f.Error())
	require.ErrorIs(t, err, errs.ErrExternalService)
}

func TestExec_BadOutput(t *testing.T) {
	_, err := helper(t, "garbage", time.Minute).Scrape(context.Background(), req())
	require.ErrorIs(t, err, errs.ErrExternalService)

	_, err = helper(t, "crash", time.Minute).Scrape(context.Background(), req())
	require.ErrorIs(t, err, errs.ErrExternalService)
	require.Contains(t, err.Error(), "TypeError: boom")
}

func TestExec_Timeout(t *testing.T) {
	_, err := helper(t, "sleep", 200*time.Millisecond).Scrape(context.Background(), req())
	var f *Failure
	require.True(t, errors.As(err, &f), "err=%v", err)
	require.Equal(t, "TIMEOUT", f.Type)
}

func TestExec_MissingBinary(t *testing.T) {
	e := NewExec("/nonexistent/scraper", nil, time.Second, nil)
	_, err := e.Scrape(context.Background(), req())
	require.ErrorIs(t, err, errs.ErrExternalService)
}

func TestFailure_Error(t *testing.T) {
	require.Equal(t, "msg", (&Failure{Message: "msg"}).Error())
	require.Equal(t, "TYPE", (&Failure{Type: "TYPE"}).Error())
	require.Equal(t, "unknown scraper error", (&Failure{}).Error())
}

func TestResultAccounts_SkipsBadRows(t *testing.T) {
	t.Parallel()
	res := result{Success: true, Accounts: []accountOut{{
		AccountNumber: "4580",
		Txns: []txnOut{
			{Date: "2024-01-05T00:00:00.000Z", ChargedAmount: -120.5, Description: "שופרסל דיל"},
			{Date: "", ChargedAmount: -10, Description: "no date"},
			{Date: "2024-01-06", ProcessedDate: "soon", ChargedAmount: -5, Description: "bad processed date"},
		},
	}}}

	accounts := res.accounts(zaptest.NewLogger(t))
	require.Len(t, accounts, 1)
	require.Equal(t, "4580", accounts[0].AccountNumber)
	require.Len(t, accounts[0].Txns, 1)
	require.Equal(t, "שופרסל דיל", accounts[0].Txns[0].Description)
	require.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), accounts[0].Txns[0].Date.UTC())
}
