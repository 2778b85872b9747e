package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jasani8259/Final-Capstone/internal/config"
)

type flakyBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *flakyBackend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls == 2 {
		return errors.New("connection refused")
	}
	return nil
}

func TestBackendProbeReportsEachResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan bool, 8)
	cfg := config.Defaults()
	cfg.ProbeInterval = 20 * time.Millisecond
	cfg.RequestTimeout = 5 * time.Millisecond

	StartBackendProbe(ctx, cfg, &flakyBackend{}, func(up bool) { results <- up }, zerolog.Nop())

	expected := []bool{true, false, true}
	for i, want := range expected {
		select {
		case got := <-results:
			if got != want {
				t.Fatalf("probe %d: expected %v, got %v", i, want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("probe %d never reported", i)
		}
	}
}

func TestBackendProbeDisabledWithoutBackend(t *testing.T) {
	called := false
	StartBackendProbe(context.Background(), config.Defaults(), nil, func(bool) { called = true }, zerolog.Nop())
	time.Sleep(10 * time.Millisecond)
	if called {
		t.Fatalf("expected no probe without a backend")
	}
}
