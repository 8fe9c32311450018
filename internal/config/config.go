package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"team-event-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Event EventConfig `yaml:"event"`
}

// EventConfig holds the rules of one event. Durations are Go duration strings.
type EventConfig struct {
	ID               string `yaml:"id" env:"EVENT_ID"`
	Teams            int    `yaml:"teams" env:"EVENT_TEAMS"`
	MaxSelections    int    `yaml:"maxSelections" env:"EVENT_MAX_SELECTIONS"`
	AnswerWindow     string `yaml:"answerWindow" env:"EVENT_ANSWER_WINDOW"`
	ActivityDuration string `yaml:"activityDuration" env:"EVENT_ACTIVITY_DURATION"`
	ActivityBlock    string `yaml:"activityBlock" env:"EVENT_ACTIVITY_BLOCK"`
	UndoWindow       string `yaml:"undoWindow" env:"EVENT_UNDO_WINDOW"`
	SettlePeriod     string `yaml:"settlePeriod" env:"EVENT_SETTLE_PERIOD"`
	TickInterval     string `yaml:"tickInterval" env:"EVENT_TICK_INTERVAL"`
	ResultCacheTTL   string `yaml:"resultCacheTTL" env:"EVENT_RESULT_CACHE_TTL"`
	ViewerTTL        string `yaml:"viewerTTL" env:"EVENT_VIEWER_TTL"`
}

// Load reads YAML config from path, applies environment overrides and validates the event.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Event.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the event id and counts.
func (e EventConfig) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("event.id must be a uuid: %w", err)
	}
	if e.Teams < 0 || e.MaxSelections < 0 {
		return fmt.Errorf("event.teams and event.maxSelections must not be negative")
	}
	s := e.Settings()
	for name, d := range map[string]time.Duration{
		"answerWindow":     s.AnswerWindow,
		"activityDuration": s.ActivityDuration,
		"activityBlock":    s.ActivityBlock,
	} {
		if d <= 0 {
			return fmt.Errorf("event.%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// Settings converts the event section, filling defaults for unset values.
func (e EventConfig) Settings() app.Settings {
	teams := e.Teams
	if teams == 0 {
		teams = 7
	}
	maxSelections := e.MaxSelections
	if maxSelections == 0 {
		maxSelections = 2
	}
	return app.Settings{
		EventID:          e.ID,
		Teams:            app.TeamIDs(teams),
		MaxSelections:    maxSelections,
		AnswerWindow:     TTLDuration(e.AnswerWindow, 15*time.Second),
		ActivityDuration: TTLDuration(e.ActivityDuration, 20*time.Minute),
		ActivityBlock:    TTLDuration(e.ActivityBlock, 5*time.Minute),
		UndoWindow:       TTLDuration(e.UndoWindow, 60*time.Second),
		SettlePeriod:     TTLDuration(e.SettlePeriod, 60*time.Second),
		TickInterval:     TTLDuration(e.TickInterval, 250*time.Millisecond),
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
