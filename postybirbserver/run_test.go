package postybirbserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/postybirb/internal/config"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/services"
)

func TestServe_StartsAndShutsDown(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zerolog.Nop(), ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/api/settings")
	require.NoError(t, err)
	var settings []model.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	_ = resp.Body.Close()
	require.Len(t, settings, 1)
	assert.Equal(t, services.DefaultProfile, settings[0].Profile)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAddr_PrefersStartupPort(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	cfg.HTTPPort = 9487
	assert.Equal(t, ":9487", listenAddr(cfg, services.StartupOptions{Port: "9487"}, zerolog.Nop()))
	assert.Equal(t, ":9500", listenAddr(cfg, services.StartupOptions{Port: "9500"}, zerolog.Nop()))
	assert.Equal(t, ":9487", listenAddr(cfg, services.StartupOptions{}, zerolog.Nop()))
}
