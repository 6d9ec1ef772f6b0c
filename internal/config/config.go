package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Remote struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Quiz struct {
		TTL           string `yaml:"ttl"`
		QuestionCount int    `yaml:"question_count"`
		TimeLimit     int    `yaml:"time_limit"`
		Tick          string `yaml:"tick"`
		Shuffle       *bool  `yaml:"shuffle"`
	} `yaml:"quiz"`
	Scoring struct {
		TimeBonusMax int `yaml:"time_bonus_max"`
		StreakBonus  int `yaml:"streak_bonus"`
	} `yaml:"scoring"`
	History struct {
		Driver   string `yaml:"driver"` // memory, redis or sqlite
		Path     string `yaml:"path"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"history"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Shuffle reports whether questions are sampled at random; on unless disabled.
func (c Config) Shuffle() bool {
	return c.Quiz.Shuffle == nil || *c.Quiz.Shuffle
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
