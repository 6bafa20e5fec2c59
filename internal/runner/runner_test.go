package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Environment = "qa"
	config.Environments = map[string]common.EnvironmentProfile{
		"qa": {BaseURL: "http://localhost:9080", APIBaseURL: "http://localhost:9080/api"},
	}
	config.Output.ResultsDir = t.TempDir()
	config.Runner.Workers = 2
	config.Runner.RetryFailed = false
	config.Runner.CaseTimeout = common.Duration(10 * time.Second)
	return config
}

func newTestRunner(t *testing.T) *Runner {
	return New(testConfig(t), arbor.NewLogger())
}

func TestRun_AllPass(t *testing.T) {
	r := newTestRunner(t)
	r.Register(Suite{
		Name: "smoke",
		Cases: []Case{
			{Name: "one", Run: func(*Context) error { return nil }},
			{Name: "two", Run: func(*Context) error { return nil }},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "qa", summary.Environment)
}

func TestRun_RecordsFailure(t *testing.T) {
	r := newTestRunner(t)
	r.Register(Suite{
		Name: "smoke",
		Cases: []Case{
			{Name: "good", Run: func(*Context) error { return nil }},
			{Name: "bad", Run: func(*Context) error { return errors.New("assertion failed") }},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	assert.False(t, summary.OK())
	assert.Equal(t, 1, summary.Failed)

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "smoke/bad", failures[0].FullName())
	assert.Equal(t, "assertion failed", failures[0].Error)
}

func TestRun_RetriesFailedCases(t *testing.T) {
	config := testConfig(t)
	config.Runner.RetryFailed = true
	config.Runner.RetryCount = 2

	var calls int32
	r := New(config, arbor.NewLogger())
	r.Register(Suite{
		Name: "flaky",
		Cases: []Case{
			{Name: "third-time-lucky", Run: func(*Context) error {
				if atomic.AddInt32(&calls, 1) < 3 {
					return errors.New("transient")
				}
				return nil
			}},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, summary.Results[0].Attempts)
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	config := testConfig(t)
	config.Runner.RetryFailed = true
	config.Runner.RetryCount = 2

	var calls int32
	r := New(config, arbor.NewLogger())
	r.Register(Suite{
		Name: "broken",
		Cases: []Case{
			{Name: "always-fails", Run: func(*Context) error {
				atomic.AddInt32(&calls, 1)
				return errors.New("permanent")
			}},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRun_RecoversFromPanic(t *testing.T) {
	r := newTestRunner(t)
	r.Register(Suite{
		Name: "smoke",
		Cases: []Case{
			{Name: "panics", Run: func(*Context) error { panic("boom") }},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Failures()[0].Error, "case panicked")
}

func TestRun_StopOnFirstRecordsRemainingAsSkipped(t *testing.T) {
	config := testConfig(t)
	config.Runner.Workers = 1
	config.Runner.StopOnFirst = true

	r := New(config, arbor.NewLogger())
	r.Register(Suite{
		Name: "ordered",
		Cases: []Case{
			{Name: "first-fails", Run: func(*Context) error { return errors.New("boom") }},
			{Name: "second", Run: func(*Context) error { return nil }},
			{Name: "third", Run: func(*Context) error { return nil }},
		},
	})

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	// every selected case appears in the summary even though the run aborted
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Passed)
}

func TestRun_MarkerFilter(t *testing.T) {
	r := newTestRunner(t)
	r.Register(Suite{
		Name: "mixed",
		Cases: []Case{
			{Name: "fast", Markers: []string{"smoke"}, Run: func(*Context) error { return nil }},
			{Name: "slow", Markers: []string{"regression"}, Run: func(*Context) error { return errors.New("should not run") }},
		},
	})

	summary, err := r.Run(context.Background(), Filters{Markers: []string{"smoke"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

func TestRun_RegexFilter(t *testing.T) {
	r := newTestRunner(t)
	r.Register(Suite{
		Name: "web",
		Cases: []Case{
			{Name: "login", Run: func(*Context) error { return nil }},
			{Name: "logout", Run: func(*Context) error { return nil }},
			{Name: "checkout", Run: func(*Context) error { return nil }},
		},
	})

	var filters Filters
	require.NoError(t, filters.MustMatch.Set("web/log"))
	require.NoError(t, filters.MustNotMatch.Set("logout"))

	summary, err := r.Run(context.Background(), Filters{
		MustMatch:    filters.MustMatch,
		MustNotMatch: filters.MustNotMatch,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 2, summary.Skipped)
}

func TestRun_ParallelWorkers(t *testing.T) {
	config := testConfig(t)
	config.Runner.Workers = 4

	var mu sync.Mutex
	running, maxRunning := 0, 0
	block := func(*Context) error {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}

	r := New(config, arbor.NewLogger())
	suite := Suite{Name: "parallel"}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		suite.Cases = append(suite.Cases, Case{Name: name, Run: block})
	}
	r.Register(suite)

	summary, err := r.Run(context.Background(), Filters{})
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Passed)
	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, maxRunning, 1, "cases should overlap across workers")
}

func TestRun_UnknownEnvironment(t *testing.T) {
	config := testConfig(t)
	config.Environment = "production-eu"

	r := New(config, arbor.NewLogger())
	_, err := r.Run(context.Background(), Filters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown environment")
}

func TestFilters_Matches(t *testing.T) {
	c := Case{Name: "login", Markers: []string{"smoke", "auth"}}

	assert.True(t, Filters{}.Matches("web", c))
	assert.True(t, Filters{Markers: []string{"auth"}}.Matches("web", c))
	assert.False(t, Filters{Markers: []string{"regression"}}.Matches("web", c))

	var f Filters
	require.NoError(t, f.MustMatch.Set("^web/"))
	assert.True(t, f.Matches("web", c))
	assert.False(t, f.Matches("api", c))
}

func TestRegexList_InvalidPattern(t *testing.T) {
	var list RegexList
	assert.Error(t, list.Set("("))
	assert.False(t, list.IsDefined())
}

func TestMarkerList_Set(t *testing.T) {
	var m MarkerList
	require.NoError(t, m.Set("smoke, regression"))
	require.NoError(t, m.Set("api"))
	assert.Equal(t, []string{"smoke", "regression", "api"}, m.Values())
	assert.Equal(t, "smoke,regression,api", m.String())
}

func TestCase_HasMarker(t *testing.T) {
	c := Case{Markers: []string{"smoke"}}
	assert.True(t, c.HasMarker("smoke"))
	assert.False(t, c.HasMarker("regression"))
}
