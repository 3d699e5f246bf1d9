package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Dedup policy values for MergerConfig.DedupPolicy.
const (
	DedupPolicyStrictIDOnly     = "strict_id_only"
	DedupPolicyIDAndFingerprint = "id_and_fingerprint"
)

// Description conversion modes for MergerConfig.DescriptionConversion.
const (
	DescriptionPreserve       = "preserve"
	DescriptionHTMLToMarkdown = "html_to_markdown"
)

// Oracle provider values for OracleConfig.Provider.
const (
	OracleProviderClaude = "claude"
	OracleProviderGemini = "gemini"
)

var configValidate = validator.New()

// Config represents the engine configuration
type Config struct {
	Environment string                         `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig                  `toml:"logging"`
	Routing     RoutingConfig                  `toml:"routing"`
	Scheduler   SchedulerConfig                `toml:"scheduler"`
	Merger      MergerConfig                   `toml:"merger"`
	Oracle      OracleConfig                   `toml:"oracle"`
	Agents      map[string]AgentOverrideConfig `toml:"agents"` // Per-agent catalog overrides keyed by agent id
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	FilePath   string   `toml:"file_path"`   // Log file path when file output is enabled
}

// RoutingConfig controls agent selection. The three composite weights must
// sum to 1.0.
type RoutingConfig struct {
	KPrimary          int     `toml:"k_primary" validate:"gte=0"`           // Primary slots (default: 2)
	KSecondary        int     `toml:"k_secondary" validate:"gte=0"`         // Secondary slots (default: 2)
	KFallback         int     `toml:"k_fallback" validate:"gte=0"`          // Fallback agents activated on thin results (default: 2)
	RegionWeight      float64 `toml:"region_weight" validate:"gte=0,lte=1"` // Composite score weight for region fit
	IndustryWeight    float64 `toml:"industry_weight" validate:"gte=0,lte=1"`
	ReliabilityWeight float64 `toml:"reliability_weight" validate:"gte=0,lte=1"`
	MinSelectionScore float64 `toml:"min_selection_score" validate:"gte=0,lte=1"` // Below this composite an agent is fallback only (default: 0.15)
}

// SchedulerConfig controls the concurrent execution core.
type SchedulerConfig struct {
	RunDeadline            time.Duration `toml:"run_deadline"`                                   // Overall run budget (default: 120s)
	MaxConcurrentAgents    int           `toml:"max_concurrent_agents" validate:"gte=1"`         // Worker pool ceiling (default: 4)
	TokenWaitBudgetRatio   float64       `toml:"token_wait_budget_ratio" validate:"gt=0,lte=1"`  // Share of remaining deadline spent waiting for a rate token (default: 0.5)
	CircuitBreakerCoolDown time.Duration `toml:"circuit_breaker_cool_down"`                      // Open duration before half-open (default: 30s)
	FailureThreshold       int           `toml:"failure_threshold" validate:"gte=1"`             // Consecutive network failures that trip the breaker (default: 3)
	RetryMaxAttempts       int           `toml:"retry_max_attempts" validate:"gte=1"`            // Total Scrape calls per agent per run (default: 3)
	RetryBaseBackoff       time.Duration `toml:"retry_base_backoff"`                             // Exponential backoff base (default: 1s)
	MinResultsForSuccess   int           `toml:"min_results_for_success" validate:"gte=0"`       // 0 = auto: min(10, results_wanted/2)
	CancelGracePeriod      time.Duration `toml:"cancel_grace_period"`                            // Watchdog budget for agents to honor cancellation (default: 2s)
	MergeBufferFactor      int           `toml:"merge_buffer_factor" validate:"gte=1"`           // Merger queue holds factor * results_wanted records (default: 10)
	ExpectedLatencyFactor  float64       `toml:"expected_latency_factor" validate:"gt=0,lte=10"` // Per-call deadline = avg latency * factor (default: 2.5)
}

// MergerConfig controls deduplication and normalization.
type MergerConfig struct {
	DedupPolicy           string `toml:"dedup_policy" validate:"oneof=strict_id_only id_and_fingerprint"`
	DescriptionConversion string `toml:"description_conversion" validate:"oneof=preserve html_to_markdown"`
}

// OracleConfig optionally wires an LLM intent oracle. Empty provider means
// rule-based classification only.
type OracleConfig struct {
	Provider string        `toml:"provider" validate:"omitempty,oneof=claude gemini"`
	APIKey   string        `toml:"api_key"` // Falls back to ANTHROPIC_API_KEY / GEMINI_API_KEY
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"` // Per-call budget (default: 2s)
}

// AgentOverrideConfig lets deployments tune individual catalog entries
// without recompiling. Nil fields keep the built-in value.
type AgentOverrideConfig struct {
	RequestsPerMinute *int     `toml:"requests_per_minute" validate:"omitempty,gt=0"`
	Burst             *int     `toml:"burst" validate:"omitempty,gt=0"`
	ReliabilityScore  *float64 `toml:"reliability_score" validate:"omitempty,gte=0,lte=1"`
	AvgLatencyMS      *int     `toml:"avg_latency_ms" validate:"omitempty,gt=0"`
	MaxResultsPerCall *int     `toml:"max_results_per_call" validate:"omitempty,gt=0"`
}

// NewDefaultConfig creates a configuration with default values.
// Defaults are tuned for production stability; only user-facing settings
// belong in indago.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",              // debug|info|warn|error
			Format:     "text",              // text|json
			Output:     []string{"stdout"},  // Log to console only; add "file" for file output
			TimeFormat: "15:04:05",          // Human-readable time for console logs
			FilePath:   "./logs/indago.log", // Used only when "file" output enabled
		},
		Routing: RoutingConfig{
			KPrimary:          2,
			KSecondary:        2,
			KFallback:         2,
			RegionWeight:      0.5,
			IndustryWeight:    0.3,
			ReliabilityWeight: 0.2,
			MinSelectionScore: 0.15,
		},
		Scheduler: SchedulerConfig{
			RunDeadline:            120 * time.Second,
			MaxConcurrentAgents:    4,
			TokenWaitBudgetRatio:   0.5,
			CircuitBreakerCoolDown: 30 * time.Second,
			FailureThreshold:       3,
			RetryMaxAttempts:       3,
			RetryBaseBackoff:       1 * time.Second,
			MinResultsForSuccess:   0, // auto: min(10, results_wanted/2)
			CancelGracePeriod:      2 * time.Second,
			MergeBufferFactor:      10,
			ExpectedLatencyFactor:  2.5,
		},
		Merger: MergerConfig{
			DedupPolicy:           DedupPolicyIDAndFingerprint,
			DescriptionConversion: DescriptionPreserve,
		},
		Oracle: OracleConfig{
			Provider: "", // Rule-based only unless a provider is configured
			Model:    "",
			Timeout:  2 * time.Second,
		},
		Agents: map[string]AgentOverrideConfig{},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override everything.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INDAGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging configuration
	if level := os.Getenv("INDAGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("INDAGO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("INDAGO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Routing configuration
	if v := os.Getenv("INDAGO_ROUTING_K_PRIMARY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Routing.KPrimary = n
		}
	}
	if v := os.Getenv("INDAGO_ROUTING_K_SECONDARY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Routing.KSecondary = n
		}
	}
	if v := os.Getenv("INDAGO_ROUTING_K_FALLBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Routing.KFallback = n
		}
	}
	if v := os.Getenv("INDAGO_ROUTING_MIN_SELECTION_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Routing.MinSelectionScore = f
		}
	}

	// Scheduler configuration
	if v := os.Getenv("INDAGO_SCHEDULER_RUN_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Scheduler.RunDeadline = d
		}
	}
	if v := os.Getenv("INDAGO_SCHEDULER_MAX_CONCURRENT_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scheduler.MaxConcurrentAgents = n
		}
	}
	if v := os.Getenv("INDAGO_SCHEDULER_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scheduler.RetryMaxAttempts = n
		}
	}
	if v := os.Getenv("INDAGO_SCHEDULER_RETRY_BASE_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Scheduler.RetryBaseBackoff = d
		}
	}
	if v := os.Getenv("INDAGO_SCHEDULER_CIRCUIT_BREAKER_COOL_DOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Scheduler.CircuitBreakerCoolDown = d
		}
	}
	if v := os.Getenv("INDAGO_SCHEDULER_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scheduler.FailureThreshold = n
		}
	}

	// Merger configuration
	if v := os.Getenv("INDAGO_MERGER_DEDUP_POLICY"); v != "" {
		config.Merger.DedupPolicy = v
	}

	// Oracle configuration
	if v := os.Getenv("INDAGO_ORACLE_PROVIDER"); v != "" {
		config.Oracle.Provider = v
	}
	if v := os.Getenv("INDAGO_ORACLE_API_KEY"); v != "" {
		config.Oracle.APIKey = v
	}
	if v := os.Getenv("INDAGO_ORACLE_MODEL"); v != "" {
		config.Oracle.Model = v
	}
}

// Validate checks structural validity plus the cross-field invariants the
// tag syntax cannot express.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sum := c.Routing.RegionWeight + c.Routing.IndustryWeight + c.Routing.ReliabilityWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("invalid config: composite score weights must sum to 1.0, got %.3f", sum)
	}

	if c.Scheduler.RunDeadline <= 0 {
		return fmt.Errorf("invalid config: run_deadline must be positive")
	}
	if c.Scheduler.RetryBaseBackoff <= 0 {
		return fmt.Errorf("invalid config: retry_base_backoff must be positive")
	}
	if c.Scheduler.CircuitBreakerCoolDown <= 0 {
		return fmt.Errorf("invalid config: circuit_breaker_cool_down must be positive")
	}
	if c.Scheduler.CancelGracePeriod <= 0 {
		return fmt.Errorf("invalid config: cancel_grace_period must be positive")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Logging.Output = append([]string(nil), c.Logging.Output...)
	if c.Agents != nil {
		out.Agents = make(map[string]AgentOverrideConfig, len(c.Agents))
		for k, v := range c.Agents {
			out.Agents[k] = v
		}
	}
	return &out
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ResolveAPIKey returns the oracle API key, falling back to the provider's
// conventional environment variable when the config carries none.
func (o *OracleConfig) ResolveAPIKey() string {
	if o.APIKey != "" {
		return o.APIKey
	}
	switch o.Provider {
	case OracleProviderClaude:
		return os.Getenv("ANTHROPIC_API_KEY")
	case OracleProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
