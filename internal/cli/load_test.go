package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/metrics"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestStartMetricsEndpoint_ServesFlushCounters(t *testing.T) {
	rec := metrics.New()
	rec.ObserveFlush("title_basics", 4, 3, 0, time.Millisecond)

	addr := freeAddr(t)
	stop := startMetricsEndpoint(context.Background(), addr, rec)
	defer stop()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(b)
		return true
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, `imdbload_rows_inserted_total{relation="title_basics"} 3`)
	assert.Contains(t, body, `imdbload_flushes_total{relation="title_basics"} 1`)
}

func TestStartMetricsEndpoint_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := startMetricsEndpoint(ctx, freeAddr(t), metrics.New())
	cancel()

	done := make(chan struct{})
	go func() { stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("metrics endpoint did not stop")
	}
}

func TestStartMetricsEndpoint_EmptyAddrIsNoop(t *testing.T) {
	stop := startMetricsEndpoint(context.Background(), "", metrics.New())
	stop()
}

func TestLoadCmd_MetricsAddrFlag(t *testing.T) {
	f := loadCmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, f)
	assert.Empty(t, f.DefValue)
}
