package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	cmd := &cli.Command{
		Name:  "leadflow",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg = FromCommand(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"leadflow"}, args...)))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)

	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.Equal(t, 5*time.Minute, cfg.ClaimLease)
	assert.False(t, cfg.DedupEnrollments)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.NoError(t, cfg.Validate())
}

func TestFlagsOverride(t *testing.T) {
	cfg := parse(t,
		"--database-url", "postgres://leadflow@localhost/leadflow",
		"--redis-addr", "localhost:6379",
		"--dedup-enrollments",
		"--claim-lease", "90s",
		"--resend-api-key", "re_test",
		"--email-from", "Acme <hello@acme.test>",
		"--timezone", "America/New_York",
	)

	assert.False(t, cfg.UsesMemoryStore())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.DedupEnrollments)
	assert.Equal(t, 90*time.Second, cfg.ClaimLease)
	assert.Equal(t, "America/New_York", cfg.Location().String())
	assert.NoError(t, cfg.Validate())
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Acme Remodeling")
	t.Setenv("LEAD_WORKERS", "9")

	cfg := parse(t)
	assert.Equal(t, "Acme Remodeling", cfg.CompanyName)
	assert.Equal(t, 9, cfg.LeadWorkers)
}

func TestValidate(t *testing.T) {
	base := parse(t)

	tests := map[string]func(c *Config){
		"bad log level":         func(c *Config) { c.LogLevel = "loud" },
		"bad redis addr":        func(c *Config) { c.RedisAddr = "nope" },
		"resend without sender": func(c *Config) { c.ResendAPIKey = "re_test" },
		"plivo half configured": func(c *Config) { c.PlivoAuthID = "MA123" },
		"zero lease":            func(c *Config) { c.ClaimLease = 0 },
		"unknown timezone":      func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
