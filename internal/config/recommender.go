package config

import (
  "fmt"
  "os"
  "time"

  "gopkg.in/yaml.v3"

  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/utils"
)

// RecommenderConfig is the tunable policy surface of the recommendation
// pipeline. Values come from recommender.yaml when present, with env
// overrides for deployment knobs. The candidate caps bound prompt size and
// inference latency; they are not quality knobs.
type RecommenderConfig struct {
  SweepInterval          time.Duration `yaml:"-"`
  SweepIntervalHours     int           `yaml:"sweep_interval_hours"`
  RecordTTLDays          int           `yaml:"record_ttl_days"`
  CandidatePoolSize      int           `yaml:"candidate_pool_size"`
  CandidatePromptSize    int           `yaml:"candidate_prompt_size"`
  FallbackSize           int           `yaml:"fallback_size"`
  DescriptionBudget      int           `yaml:"description_budget"`
  InferenceTimeoutSecs   int           `yaml:"inference_timeout_seconds"`
  HardFilterAvoidGenres  bool          `yaml:"hard_filter_avoid_genres"`
}

func Default() RecommenderConfig {
  return RecommenderConfig{
    SweepIntervalHours:    24,
    RecordTTLDays:         7,
    CandidatePoolSize:     50,
    CandidatePromptSize:   15,
    FallbackSize:          5,
    DescriptionBudget:     150,
    InferenceTimeoutSecs:  20,
    HardFilterAvoidGenres: false,
  }
}

// Load reads the policy file named by RECOMMENDER_CONFIG_PATH (default
// recommender.yaml). A missing file yields the defaults; a file that exists
// but does not parse or validate is a startup error.
func Load(log *logger.Logger) (RecommenderConfig, error) {
  cfg := Default()

  path := utils.GetEnv("RECOMMENDER_CONFIG_PATH", "recommender.yaml", log)
  data, err := os.ReadFile(path)
  if err != nil {
    if os.IsNotExist(err) {
      log.Debug("No recommender config file, using defaults", "path", path)
    } else {
      return RecommenderConfig{}, fmt.Errorf("read recommender config: %w", err)
    }
  } else {
    if err := yaml.Unmarshal(data, &cfg); err != nil {
      return RecommenderConfig{}, fmt.Errorf("parse recommender config: %w", err)
    }
  }

  cfg.SweepIntervalHours = utils.GetEnvAsInt("RECOMMENDER_SWEEP_INTERVAL_HOURS", cfg.SweepIntervalHours, log)
  cfg.InferenceTimeoutSecs = utils.GetEnvAsInt("RECOMMENDER_INFERENCE_TIMEOUT_SECONDS", cfg.InferenceTimeoutSecs, log)
  cfg.HardFilterAvoidGenres = utils.GetEnvAsBool("RECOMMENDER_HARD_FILTER_AVOID_GENRES", cfg.HardFilterAvoidGenres, log)

  if err := cfg.validate(); err != nil {
    return RecommenderConfig{}, err
  }
  cfg.SweepInterval = time.Duration(cfg.SweepIntervalHours) * time.Hour
  return cfg, nil
}

func (c RecommenderConfig) validate() error {
  if c.SweepIntervalHours <= 0 {
    return fmt.Errorf("sweep_interval_hours must be positive, got %d", c.SweepIntervalHours)
  }
  if c.RecordTTLDays <= 0 {
    return fmt.Errorf("record_ttl_days must be positive, got %d", c.RecordTTLDays)
  }
  if c.CandidatePromptSize <= 0 || c.CandidatePromptSize > c.CandidatePoolSize {
    return fmt.Errorf("candidate_prompt_size must be in [1, candidate_pool_size], got %d", c.CandidatePromptSize)
  }
  if c.FallbackSize <= 0 {
    return fmt.Errorf("fallback_size must be positive, got %d", c.FallbackSize)
  }
  if c.InferenceTimeoutSecs <= 0 {
    return fmt.Errorf("inference_timeout_seconds must be positive, got %d", c.InferenceTimeoutSecs)
  }
  return nil
}

// RecordTTL is the staleness window appended to last_updated on every write.
func (c RecommenderConfig) RecordTTL() time.Duration {
  return time.Duration(c.RecordTTLDays) * 24 * time.Hour
}

// InferenceTimeout bounds one external inference call.
func (c RecommenderConfig) InferenceTimeout() time.Duration {
  return time.Duration(c.InferenceTimeoutSecs) * time.Second
}
