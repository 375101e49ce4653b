// Package integration runs the question pipeline against real backends.
// The suite is skipped unless QBANK_INTEGRATION_TEST is set; the backends are
// configured through the usual QBANK_* environment variables.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/app"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/QuestionBank/internal/interfaces/http"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/handlers"
	pkgErrors "github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Environment detection
// ---------------------------------------------------------------------------

const (
	// EnvIntegrationEnabled controls whether integration tests run.
	EnvIntegrationEnabled = "QBANK_INTEGRATION_TEST"

	// TestTimeout is the maximum duration for a single integration test.
	TestTimeout = 120 * time.Second

	// SetupTimeout bounds connecting to the backends and migrating.
	SetupTimeout = 60 * time.Second

	repoRoot = "../.."
)

func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("skipping integration test: set %s=1 to enable", EnvIntegrationEnabled)
	}
}

// ---------------------------------------------------------------------------
// TestEnvironment
// ---------------------------------------------------------------------------

// TestEnvironment is the application wired exactly as the binaries wire it,
// plus an httptest server over the full router. It is built once per test
// binary; every test gets a copy carrying its own context.
type TestEnvironment struct {
	Ctx    context.Context
	Cancel context.CancelFunc
	Cfg    *config.Config
	Logger logging.Logger

	Core     *app.Core
	Infra    *app.Infrastructure
	Services *app.Services

	HTTPServer *httptest.Server
}

var (
	globalEnv     *TestEnvironment
	globalEnvOnce sync.Once
	globalEnvErr  error
)

// SetupTestEnvironment returns the shared environment, building it on first
// use.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	SkipIfNoIntegration(t)

	globalEnvOnce.Do(func() {
		globalEnv, globalEnvErr = buildTestEnvironment()
	})
	if globalEnvErr != nil {
		t.Fatalf("integration environment setup failed: %v", globalEnvErr)
	}

	ctx, cancel := context.WithTimeout(globalEnv.Ctx, TestTimeout)
	t.Cleanup(cancel)

	env := *globalEnv
	env.Ctx = ctx
	env.Cancel = cancel
	return &env
}

// TeardownTestEnvironment releases the shared environment, if it was built.
func TeardownTestEnvironment() {
	if globalEnv == nil {
		return
	}
	globalEnv.HTTPServer.Close()
	globalEnv.Infra.Close()
	globalEnv.Cancel()
}

func buildTestEnvironment() (*TestEnvironment, error) {
	cfg, err := loadTestConfig()
	if err != nil {
		return nil, fmt.Errorf("load test config: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       logging.LevelDebug,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	migrations, err := filepath.Abs(filepath.Join(repoRoot, "migrations"))
	if err != nil {
		return nil, err
	}
	if err := postgres.NewMigrator(cfg.Database.URL(), migrations, logger).Up(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	core, err := app.NewCore(cfg)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	setupCtx, setupCancel := context.WithTimeout(ctx, SetupTimeout)
	defer setupCancel()
	infra, err := app.Open(setupCtx, cfg, nil, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open infrastructure: %w", err)
	}
	svc := app.NewServices(core, infra, logger)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Taxonomy:       handlers.NewTaxonomyHandler(core.Registry, logger),
		Numbering:      handlers.NewNumberingHandler(core.Numbers, logger),
		Questions:      handlers.NewQuestionHandler(svc.Ingest, svc.Query, logger),
		AnswerKeys:     handlers.NewAnswerKeyHandler(svc.Answers, logger),
		Classification: handlers.NewClassificationHandler(svc.Classify, logger),
		Health:         handlers.NewHealthHandler("integration", infra.HealthCheckers()...),
		Logger:         logger,
	})

	return &TestEnvironment{
		Ctx:        ctx,
		Cancel:     cancel,
		Cfg:        cfg,
		Logger:     logger,
		Core:       core,
		Infra:      infra,
		Services:   svc,
		HTTPServer: httptest.NewServer(router),
	}, nil
}

// loadTestConfig reads QBANK_* variables. The default vocabulary path is
// relative to the repository root.
func loadTestConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Taxonomy.Path == config.DefaultTaxonomyPath {
		cfg.Taxonomy.Path = filepath.Join(repoRoot, config.DefaultTaxonomyPath)
	}
	return cfg, nil
}

// RequireRedis skips the test if Redis is not enabled.
func RequireRedis(t *testing.T, env *TestEnvironment) {
	t.Helper()
	if env.Infra.Redis == nil {
		t.Skip("redis not enabled (QBANK_REDIS_ENABLED)")
	}
}

// ---------------------------------------------------------------------------
// Data isolation
// ---------------------------------------------------------------------------

var testIDCounter atomic.Uint64

// NextTestSchool returns a school name no other test uses, so tests share
// the database without truncating it.
func NextTestSchool(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), testIDCounter.Add(1))
}

// DeleteSchool removes every stored part of school.
func DeleteSchool(t *testing.T, env *TestEnvironment, school string) {
	t.Helper()
	_, err := env.Infra.Postgres.DB().ExecContext(context.Background(),
		"DELETE FROM question_parts WHERE school = $1", school)
	if err != nil {
		t.Errorf("delete %s: %v", school, err)
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

// DoJSON sends body as JSON and decodes the response envelope's data into
// out when out is non-nil. It returns the status code and the envelope.
func DoJSON(t *testing.T, env *TestEnvironment, method, path string, body, out interface{}) (int, common.APIResponse[json.RawMessage]) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(env.Ctx, method, env.HTTPServer.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.HTTPServer.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope common.APIResponse[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return resp.StatusCode, envelope
}

// AssertErrorCode checks that err carries the given code.
func AssertErrorCode(t *testing.T, err error, expected pkgErrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	if got := pkgErrors.GetCode(err); got != expected {
		t.Fatalf("expected error code %s, got %s: %v", expected, got, err)
	}
}

//Personal.AI order the ending
