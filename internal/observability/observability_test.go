package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/geocoder89/perfeval/internal/actorctx"
	"github.com/geocoder89/perfeval/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsActorAndWritesFile(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()

	log, closer, err := NewLogger(LoggerOptions{Env: "dev", LogsDir: dir, ToFile: true, Stdout: &buf})
	require.NoError(t, err)

	ctx := actorctx.WithUserID(context.Background(), "u-1")
	log.InfoContext(ctx, "hello")
	require.NoError(t, closer.Close())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "u-1", rec["actor_id"])

	b, err := os.ReadFile(filepath.Join(dir, "app_"+time.Now().Format("20060102")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
}

func TestNewLogger_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer

	log, _, err := NewLogger(LoggerOptions{Env: "prod", Stdout: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestObserveStore(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	require.NoError(t, p.ObserveStore("users", "load", func() error { return nil }))

	err := p.ObserveStore("users", "save", func() error { return store.ErrLockTimeout })
	assert.ErrorIs(t, err, store.ErrLockTimeout)

	assert.Equal(t, 1.0, counterValue(t, p.StoreErrorsTotal.WithLabelValues("users", "save", "lock_timeout")))
	assert.Equal(t, 0.0, counterValue(t, p.StoreErrorsTotal.WithLabelValues("users", "load", "lock_timeout")))

	_ = p.ObserveStore("users", "save", func() error { return errors.New("disk full") })
	assert.Equal(t, 1.0, counterValue(t, p.StoreErrorsTotal.WithLabelValues("users", "save", "io")))
}

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "perfeval", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
