package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, ":3000", c.Server.Addr)
	require.Equal(t, []string{"http://localhost:3000"}, c.Server.AllowedOrigins)
	require.Equal(t, DriverSQLite, c.Storage.Driver)
	require.Equal(t, "data/finance.db", c.Storage.Path)
	require.Equal(t, 7*24*time.Hour, c.Auth.SessionTTL)
	require.Equal(t, 5, c.Auth.MaxFails)
	require.Equal(t, 15*time.Minute, c.Auth.BlockFor)
	require.Equal(t, "node", c.Scraper.Command)
	require.Equal(t, []string{"scraper/run.js"}, c.Scraper.Args)
	require.Equal(t, 60, c.Scraper.LookbackDays)
	require.Equal(t, "0 7 * * *", c.Report.Cron)
	require.Equal(t, "https://api.telegram.org", c.Telegram.APIURL)
	require.Equal(t, "info", c.Log.Level)

	loc, err := c.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Jerusalem", loc.String())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("KESEF_STORAGE_DRIVER", "postgres")
	_, err := Load(viper.New(), "")
	require.ErrorContains(t, err, "storage.dsn")

	t.Setenv("KESEF_STORAGE_DSN", "postgres://u:p@localhost/kesef")
	t.Setenv("KESEF_AUTH_SESSION_TTL", "1h")
	t.Setenv("KESEF_SERVER_ALLOWED_ORIGINS", "http://a,http://b")
	t.Setenv("KESEF_LOG_DEV", "true")
	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, c.Storage.Driver)
	require.Equal(t, time.Hour, c.Auth.SessionTTL)
	require.Equal(t, []string{"http://a", "http://b"}, c.Server.AllowedOrigins)
	require.True(t, c.Log.Dev)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kesef.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
scraper:
  command: /usr/bin/node
  args: ["/opt/scraper/run.js", "--quiet"]
  timeout: 5m
report:
  timezone: UTC
`), 0o600))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "/usr/bin/node", c.Scraper.Command)
	require.Equal(t, []string{"/opt/scraper/run.js", "--quiet"}, c.Scraper.Args)
	require.Equal(t, 5*time.Minute, c.Scraper.Timeout)
	require.Equal(t, "UTC", c.Report.Timezone)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	var base Config
	require.NoError(t, v.Unmarshal(&base))
	require.NoError(t, base.Validate())

	bad := base
	bad.Storage.Driver = "mysql"
	require.Error(t, bad.Validate())

	bad = base
	bad.Report.Timezone = "Mars/Olympus"
	require.Error(t, bad.Validate())

	bad = base
	bad.Auth.SessionTTL = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.Scraper.Command = ""
	require.Error(t, bad.Validate())
}
