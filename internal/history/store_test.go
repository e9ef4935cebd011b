package history

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore spins up a disposable Postgres container, applies
// migrations, and returns a Store ready for use. Grounded on the
// teacher's pkg/database/client_test.go inline-container pattern.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := Config{SSLMode: "disable", MaxOpenConns: 5, MaxIdleConns: 2}
	_ = cfg // connStr already carries host/port/user/pass/db; NewClient below reopens via the DSN form instead.

	client, err := NewClient(ctx, parseTestDSN(t, connStr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client)
}

// parseTestDSN turns the testcontainers connection string into the
// host/port/user/pass/db fields NewClient expects. testcontainers always
// returns a well-formed postgres:// URL for this module's container, so a
// plain net/url parse is sufficient here.
func parseTestDSN(t *testing.T, connStr string) Config {
	t.Helper()
	u, err := parseURL(connStr)
	require.NoError(t, err)
	return u
}

func parseURL(connStr string) (Config, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return Config{}, err
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return Config{}, err
	}
	pass, _ := u.User.Password()
	return Config{
		Host: u.Hostname(), Port: port, User: u.User.Username(), Password: pass,
		Database: strings.TrimPrefix(u.Path, "/"), SSLMode: "disable", MaxOpenConns: 5, MaxIdleConns: 2,
	}, nil
}

func TestStore_BaselineCheckRegression(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, v := range []float64{100, 102, 98, 101, 99} {
		require.NoError(t, store.RecordBaseline(ctx, "repo-a", MetricPerf, v))
	}

	passResult, err := store.Check(ctx, "repo-a", MetricPerf, 42, 100, 2.0, 10)
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, passResult.Verdict)

	regResult, err := store.Check(ctx, "repo-a", MetricPerf, 42, 500, 2.0, 10)
	require.NoError(t, err)
	assert.Equal(t, VerdictRegression, regResult.Verdict)

	report, err := store.Report(ctx, "repo-a", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalCount)
	assert.Equal(t, 1, report.ByMetric[MetricPerf].PassCount)
	assert.Equal(t, 1, report.ByMetric[MetricPerf].RegressionCount)

	samples, checks, err := store.History(ctx, "repo-a", MetricPerf, 10)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
	assert.Len(t, checks, 2)
}

func TestStore_CheckWithNoBaselines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.Check(ctx, "repo-empty", MetricCoverage, 0, 85, 2.0, 10)
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, result.Verdict, "no baselines yet should never flag a regression")
}
