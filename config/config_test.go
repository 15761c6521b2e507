package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.TotalRounds != 6 {
		t.Errorf("expected TotalRounds=6, got %d", cfg.TotalRounds)
	}
	if cfg.CardsPerPlayer != 6 {
		t.Errorf("expected CardsPerPlayer=6, got %d", cfg.CardsPerPlayer)
	}
	if cfg.FullDeckSize != 9 {
		t.Errorf("expected FullDeckSize=9, got %d", cfg.FullDeckSize)
	}
	if cfg.CardsPerKind != 3 {
		t.Errorf("expected CardsPerKind=3, got %d", cfg.CardsPerKind)
	}
	if cfg.MaxSwapsPerGame != 3 {
		t.Errorf("expected MaxSwapsPerGame=3, got %d", cfg.MaxSwapsPerGame)
	}
	if cfg.MaxSwapsPerRound != 1 {
		t.Errorf("expected MaxSwapsPerRound=1, got %d", cfg.MaxSwapsPerRound)
	}
	if cfg.PreviewTimerSec != 30 {
		t.Errorf("expected PreviewTimerSec=30, got %d", cfg.PreviewTimerSec)
	}
	if cfg.SequenceTimerSec != 60 {
		t.Errorf("expected SequenceTimerSec=60, got %d", cfg.SequenceTimerSec)
	}
	if cfg.SwapTimerSec != 20 {
		t.Errorf("expected SwapTimerSec=20, got %d", cfg.SwapTimerSec)
	}
	if cfg.ContinueTimerSec != 5 {
		t.Errorf("expected ContinueTimerSec=5, got %d", cfg.ContinueTimerSec)
	}
	if cfg.ReconnectWindowSec != 120 {
		t.Errorf("expected ReconnectWindowSec=120, got %d", cfg.ReconnectWindowSec)
	}
	if cfg.DisconnectNotifyGraceSec != 2 {
		t.Errorf("expected DisconnectNotifyGraceSec=2, got %d", cfg.DisconnectNotifyGraceSec)
	}
	if cfg.PostResumeRoundStartYieldMS != 100 {
		t.Errorf("expected PostResumeRoundStartYieldMS=100, got %d", cfg.PostResumeRoundStartYieldMS)
	}
	if cfg.MaxNameLength != 20 {
		t.Errorf("expected MaxNameLength=20, got %d", cfg.MaxNameLength)
	}
	if cfg.WSPort != 3000 {
		t.Errorf("expected WSPort=3000, got %d", cfg.WSPort)
	}
	if cfg.AuthBaseURL != "" {
		t.Errorf("expected AuthBaseURL empty by default, got %q", cfg.AuthBaseURL)
	}
	if cfg.InboundRateLimitPerSec != 20 {
		t.Errorf("expected InboundRateLimitPerSec=20, got %d", cfg.InboundRateLimitPerSec)
	}
	if cfg.InboundRateLimitBurst != 40 {
		t.Errorf("expected InboundRateLimitBurst=40, got %d", cfg.InboundRateLimitBurst)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("TOTAL_ROUNDS", "8")
	os.Setenv("SWAP_TIMER_SEC", "15")
	os.Setenv("WS_PORT", "9090")
	os.Setenv("AUTH_BASE_URL", "https://auth.example.com")
	defer func() {
		os.Unsetenv("TOTAL_ROUNDS")
		os.Unsetenv("SWAP_TIMER_SEC")
		os.Unsetenv("WS_PORT")
		os.Unsetenv("AUTH_BASE_URL")
	}()

	cfg := Load()

	if cfg.TotalRounds != 8 {
		t.Errorf("expected TotalRounds=8 after env override, got %d", cfg.TotalRounds)
	}
	if cfg.SwapTimerSec != 15 {
		t.Errorf("expected SwapTimerSec=15 after env override, got %d", cfg.SwapTimerSec)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.AuthBaseURL != "https://auth.example.com" {
		t.Errorf("expected AuthBaseURL override, got %q", cfg.AuthBaseURL)
	}
	// Non-overridden fields should remain default.
	if cfg.ReconnectWindowSec != 120 {
		t.Errorf("expected ReconnectWindowSec=120 (default), got %d", cfg.ReconnectWindowSec)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	os.Setenv("TOTAL_ROUNDS", "not-a-number")
	defer os.Unsetenv("TOTAL_ROUNDS")

	cfg := Load()

	// Should fall back to default when env value is invalid.
	if cfg.TotalRounds != 6 {
		t.Errorf("expected TotalRounds=6 (default) with invalid env, got %d", cfg.TotalRounds)
	}
}
