// Package config loads all tunable constants for the duel server: an
// optional config.json is applied first, then environment variable
// overrides, matching the teacher's layered Defaults/Load pattern.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds every configurable game and process parameter (§6.4, §6.5).
type Config struct {
	TotalRounds      int `json:"total_rounds"`
	CardsPerPlayer   int `json:"cards_per_player"`
	FullDeckSize     int `json:"full_deck_size"`
	CardsPerKind     int `json:"cards_per_kind"`
	MaxSwapsPerGame  int `json:"max_swaps_per_game"`
	MaxSwapsPerRound int `json:"max_swaps_per_round"`

	PreviewTimerSec  int `json:"preview_timer_sec"`
	SequenceTimerSec int `json:"sequence_timer_sec"`
	SwapTimerSec     int `json:"swap_timer_sec"`
	ContinueTimerSec int `json:"continue_timer_sec"`

	ReconnectWindowSec          int `json:"reconnect_window_sec"`
	DisconnectNotifyGraceSec    int `json:"disconnect_notify_grace_sec"`
	PostResumeRoundStartYieldMS int `json:"post_resume_round_start_yield_ms"`

	MaxNameLength int `json:"max_name_length"`
	WSPort        int `json:"ws_port"`

	// AuthBaseURL, when set, enables optional bearer-JWT identity assertion
	// on createLobby/joinLobby/reconnect (see auth package). Empty disables
	// it; the server then falls back to validating the client-claimed
	// playerId per §6.3 alone — identical to local-dev/test behavior.
	AuthBaseURL string `json:"auth_base_url"`

	// InboundRateLimitPerSec / InboundRateLimitBurst bound how many inbound
	// events per second a single connection may submit (§5 resource bounds);
	// this is a transport-level protection, not a game rule.
	InboundRateLimitPerSec int `json:"inbound_rate_limit_per_sec"`
	InboundRateLimitBurst  int `json:"inbound_rate_limit_burst"`
}

// Defaults returns a Config with every value from spec §6.4.
func Defaults() *Config {
	return &Config{
		TotalRounds:      6,
		CardsPerPlayer:   6,
		FullDeckSize:     9,
		CardsPerKind:     3,
		MaxSwapsPerGame:  3,
		MaxSwapsPerRound: 1,

		PreviewTimerSec:  30,
		SequenceTimerSec: 60,
		SwapTimerSec:     20,
		ContinueTimerSec: 5,

		ReconnectWindowSec:          120,
		DisconnectNotifyGraceSec:    2,
		PostResumeRoundStartYieldMS: 100,

		MaxNameLength: 20,
		WSPort:        3000,

		InboundRateLimitPerSec: 20,
		InboundRateLimitBurst:  40,
	}
}

// Load reads an optional config.json from the working directory, then
// applies environment variable overrides. Fields set in neither source keep
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("config: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.TotalRounds, "TOTAL_ROUNDS")
	overrideInt(&cfg.CardsPerPlayer, "CARDS_PER_PLAYER")
	overrideInt(&cfg.MaxSwapsPerGame, "MAX_SWAPS_PER_GAME")
	overrideInt(&cfg.MaxSwapsPerRound, "MAX_SWAPS_PER_ROUND")
	overrideInt(&cfg.PreviewTimerSec, "PREVIEW_TIMER_SEC")
	overrideInt(&cfg.SequenceTimerSec, "SEQUENCE_TIMER_SEC")
	overrideInt(&cfg.SwapTimerSec, "SWAP_TIMER_SEC")
	overrideInt(&cfg.ContinueTimerSec, "CONTINUE_TIMER_SEC")
	overrideInt(&cfg.ReconnectWindowSec, "RECONNECT_WINDOW_SEC")
	overrideInt(&cfg.DisconnectNotifyGraceSec, "DISCONNECT_NOTIFY_GRACE_SEC")
	overrideInt(&cfg.PostResumeRoundStartYieldMS, "POST_RESUME_ROUND_START_YIELD_MS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideInt(&cfg.InboundRateLimitPerSec, "INBOUND_RATE_LIMIT_PER_SEC")
	overrideInt(&cfg.InboundRateLimitBurst, "INBOUND_RATE_LIMIT_BURST")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("config: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
