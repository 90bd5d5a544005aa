package weave_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/pkg/adapters/agent"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Store:   config.StoreConfig{Driver: driver},
		Metrics: config.MetricsConfig{Enabled: true},
		Input:   config.InputConfig{MaxSize: 16 * 1024},
	}
}

func quiet() weave.Option {
	return weave.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func addWorker(t *testing.T, app *weave.App, graphID string) {
	t.Helper()
	store, err := app.Manager().Create(context.Background(), graphID, "")
	require.NoError(t, err)
	_, err = store.AddNode(domain.Node{
		ID:   "w",
		Type: domain.NodeTypeWorker,
		Data: map[string]any{"workerName": "Payer", "selectedTool": "transferTokens"},
	})
	require.NoError(t, err)
	require.NoError(t, app.Manager().Save(context.Background(), graphID))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := weave.New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := weave.New(context.Background(), testConfig("cassandra"), quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestNew_MemoryServesHTTP(t *testing.T) {
	app, err := weave.New(context.Background(), testConfig(config.DriverMemory), quiet())
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), weave.Version)

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_EchoAgentByDefault(t *testing.T) {
	app, err := weave.New(context.Background(), testConfig(config.DriverMemory), quiet())
	require.NoError(t, err)
	defer app.Close()
	addWorker(t, app, "g")

	store, err := app.Manager().Open(context.Background(), "g")
	require.NoError(t, err)

	var out strings.Builder
	res, err := app.Runner().RunGraph(context.Background(), store, runner.RunOptions{}, relay.NewWriterSink(&out))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Contains(t, out.String(), "transferTokens")

	n, err := testutil.GatherAndCount(app.Metrics().Registry(), "weave_node_status_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNew_RedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(config.DriverRedis)
	cfg.Store.Redis = config.RedisConfig{Addr: mr.Addr(), Prefix: "weave:"}

	app, err := weave.New(context.Background(), cfg, quiet(), weave.WithAgent(agent.NewScripted(domain.StreamEnd())))
	require.NoError(t, err)
	addWorker(t, app, "g")
	require.NoError(t, app.Close())

	keys := mr.Keys()
	assert.Contains(t, keys, "weave:"+domain.CollectionGraphs+":g")
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(config.DriverRedis)
	cfg.Store.Redis = config.RedisConfig{Addr: addr}
	_, err := weave.New(context.Background(), cfg, quiet())
	require.Error(t, err)
}

func TestNew_SQLiteDriverPersists(t *testing.T) {
	cfg := testConfig(config.DriverSQLite)
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "weave.db")

	app, err := weave.New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	addWorker(t, app, "g")
	require.NoError(t, app.Close())

	app, err = weave.New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer app.Close()

	graphs, err := app.Manager().List(context.Background())
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "g", graphs[0].ID)
	assert.Equal(t, 1, graphs[0].Nodes)
}

func TestNew_ProcessAgent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`command: sh
args:
  - -c
  - |
    cat > /dev/null
    echo '{"type":"content_delta","text":"from process"}'
    echo '{"type":"stream_end"}'
`), 0o644))

	cfg := testConfig(config.DriverMemory)
	cfg.Agent.Command = path
	app, err := weave.New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer app.Close()
	addWorker(t, app, "g")

	store, err := app.Manager().Open(context.Background(), "g")
	require.NoError(t, err)
	var out strings.Builder
	res, err := app.Runner().RunGraph(context.Background(), store, runner.RunOptions{}, relay.NewWriterSink(&out))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "from process", out.String())
}

func TestNew_ProcessAgentMissingConfig(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Agent.Command = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := weave.New(context.Background(), cfg, quiet())
	require.Error(t, err)
}
