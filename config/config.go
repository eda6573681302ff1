// Package config loads engine configuration with priority env > file >
// defaults. The file format is YAML; environment overrides use the TQA_
// prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values like "30s" or raw nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full engine configuration. Safe to read concurrently, not
// safe to modify after Load.
type Config struct {
	Search SearchConfig `yaml:"search"`
	Debate DebateConfig `yaml:"debate"`
	LLM    LLMConfig    `yaml:"llm"`
	Log    LogConfig    `yaml:"log"`
}

type SearchConfig struct {
	Iterations    int      `yaml:"iterations"`
	Goroutines    int      `yaml:"goroutines"`
	MaxDepth      int      `yaml:"max_depth"`
	MaxCandidates int      `yaml:"max_candidates"`
	MaxTerminals  int      `yaml:"max_terminals"`
	RetryBudget   int      `yaml:"retry_budget"`
	Exploration   float64  `yaml:"exploration"`
	CallTimeout   Duration `yaml:"call_timeout"`
	DefaultScore  float64  `yaml:"default_score"`
	PlannerTopK   int      `yaml:"planner_topk"`
}

type DebateConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Critics     int      `yaml:"critics"`
	CallTimeout Duration `yaml:"call_timeout"`
}

type LLMConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// PromptDir overrides the embedded prompt pack when set.
	PromptDir string `yaml:"prompt_dir"`
	// Evaluator selects the value model: "heuristic" or "llm".
	Evaluator string `yaml:"evaluator"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Search: SearchConfig{
			Iterations:    64,
			Goroutines:    2,
			MaxDepth:      12,
			MaxCandidates: 3,
			MaxTerminals:  5,
			RetryBudget:   2,
			Exploration:   1.4,
			CallTimeout:   Duration(60 * time.Second),
			DefaultScore:  0,
			PlannerTopK:   3,
		},
		Debate: DebateConfig{
			Enabled:     true,
			Critics:     3,
			CallTimeout: Duration(60 * time.Second),
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
			Evaluator:   "heuristic",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load merges the YAML file at path (optional) and TQA_* environment
// overrides over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	fromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Search.Iterations < 0 {
		return fmt.Errorf("search.iterations must be >= 0, got %d", c.Search.Iterations)
	}
	if c.Search.Goroutines < 1 {
		return fmt.Errorf("search.goroutines must be >= 1, got %d", c.Search.Goroutines)
	}
	if c.Search.MaxDepth < 1 {
		return fmt.Errorf("search.max_depth must be >= 1, got %d", c.Search.MaxDepth)
	}
	if c.Search.MaxCandidates < 1 {
		return fmt.Errorf("search.max_candidates must be >= 1, got %d", c.Search.MaxCandidates)
	}
	if c.Search.Exploration <= 0 {
		return fmt.Errorf("search.exploration must be > 0, got %g", c.Search.Exploration)
	}
	if c.Search.DefaultScore < 0 || c.Search.DefaultScore > 1 {
		return fmt.Errorf("search.default_score must be in [0,1], got %g", c.Search.DefaultScore)
	}
	if c.Debate.Enabled && c.Debate.Critics < 1 {
		return fmt.Errorf("debate.critics must be >= 1 when debate is enabled, got %d", c.Debate.Critics)
	}
	switch c.LLM.Evaluator {
	case "", "heuristic", "llm":
	default:
		return fmt.Errorf("llm.evaluator must be \"heuristic\" or \"llm\", got %q", c.LLM.Evaluator)
	}
	return nil
}

// APIKey resolves the provider key from the configured environment variable.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

func fromEnv(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = Duration(d)
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("TQA_ITERATIONS", &cfg.Search.Iterations)
	setInt("TQA_GOROUTINES", &cfg.Search.Goroutines)
	setInt("TQA_MAX_DEPTH", &cfg.Search.MaxDepth)
	setInt("TQA_MAX_CANDIDATES", &cfg.Search.MaxCandidates)
	setInt("TQA_MAX_TERMINALS", &cfg.Search.MaxTerminals)
	setInt("TQA_RETRY_BUDGET", &cfg.Search.RetryBudget)
	setFloat("TQA_EXPLORATION", &cfg.Search.Exploration)
	setDuration("TQA_CALL_TIMEOUT", &cfg.Search.CallTimeout)
	setFloat("TQA_DEFAULT_SCORE", &cfg.Search.DefaultScore)
	setInt("TQA_PLANNER_TOPK", &cfg.Search.PlannerTopK)

	setBool("TQA_DEBATE_ENABLED", &cfg.Debate.Enabled)
	setInt("TQA_DEBATE_CRITICS", &cfg.Debate.Critics)
	setDuration("TQA_DEBATE_CALL_TIMEOUT", &cfg.Debate.CallTimeout)

	setString("TQA_LLM_MODEL", &cfg.LLM.Model)
	setString("TQA_LLM_BASE_URL", &cfg.LLM.BaseURL)
	setString("TQA_LLM_API_KEY_ENV", &cfg.LLM.APIKeyEnv)
	setFloat("TQA_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	setInt("TQA_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	setString("TQA_PROMPT_DIR", &cfg.LLM.PromptDir)
	setString("TQA_EVALUATOR", &cfg.LLM.Evaluator)

	setString("TQA_LOG_LEVEL", &cfg.Log.Level)
	setBool("TQA_LOG_PRETTY", &cfg.Log.Pretty)
}
