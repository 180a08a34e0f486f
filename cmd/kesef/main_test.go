package main

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/kesef/internal/config"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

type mapSettings map[string]string

func (m mapSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	return v, nil
}
func (m mapSettings) Set(_ context.Context, key, value string) error { m[key] = value; return nil }
func (m mapSettings) All(context.Context) (map[string]string, error) { return m, nil }

func TestReportSpec(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	require.Equal(t, "0 7 * * *", reportSpec(ctx, mapSettings{}, "0 7 * * *", log))
	require.Equal(t, "30 8 * * *", reportSpec(ctx, mapSettings{model.SettingDailyReportTime: "08:30"}, "0 7 * * *", log))
	require.Equal(t, "0 7 * * *", reportSpec(ctx, mapSettings{model.SettingDailyReportTime: "8am"}, "0 7 * * *", log))
}

func TestReadLine(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(strings.NewReader("first\r\nlast"))
	s, err := readLine(r)
	require.NoError(t, err)
	require.Equal(t, "first", s)

	s, err = readLine(r)
	require.NoError(t, err)
	require.Equal(t, "last", s)

	_, err = readLine(r)
	require.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var sum model.ScrapeSummary
	sum.RunID = "r1"
	sum.Add(model.ScrapeOutcome{AccountID: 1, AccountName: "לאומי", Status: model.ScrapeSuccess, TransactionsCount: 12})
	sum.Add(model.ScrapeOutcome{AccountID: 2, AccountName: "מקס", Status: model.ScrapeError, ErrorMessage: "INVALID_PASSWORD"})

	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()
	require.Contains(t, out, "ok    #1 לאומי: 12 transactions")
	require.Contains(t, out, "error #2 מקס: INVALID_PASSWORD")
	require.Contains(t, out, "2 accounts, 1 ok, 1 failed, 12 transactions (run r1)")
}

func TestNewApp_SQLite(t *testing.T) {
	t.Parallel()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("storage.path", filepath.Join(t.TempDir(), "data", "kesef.db"))
	var c config.Config
	require.NoError(t, v.Unmarshal(&c))
	require.NoError(t, c.Validate())

	ctx := context.Background()
	a, err := newApp(ctx, c, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.close()

	setup, err := a.auth.IsSetup(ctx)
	require.NoError(t, err)
	require.False(t, setup)

	sess, err := a.auth.Setup(ctx, "master-pw")
	require.NoError(t, err)
	_, err = a.auth.Resolve(ctx, sess.Token)
	require.NoError(t, err)

	_, err = a.auth.Login(ctx, "wrong", cliClient)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = a.scrape.Run(ctx, nil, "master-pw")
	require.ErrorIs(t, err, errs.ErrNotFound, "no active accounts yet")

	text, err := a.report.Generate(ctx, sess.CreatedAt)
	require.NoError(t, err)
	require.NotEmpty(t, text)
}
