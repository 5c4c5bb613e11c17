package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderNvidia = "nvidia"
	ProviderClaude = "claude"
)

// Config holds the runtime configuration for the beacon server.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	LLMProvider           string
	NvidiaAPIKey          string
	NvidiaBaseURL         string
	NvidiaModel           string
	ClaudeAPIKey          string
	ClaudeModel           string
	GeoAgentEndpoint      string
	GeoAgentAPIKey        string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	DatabaseURL           string
	AuthToken             string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.LLMProvider, "llm-provider", ProviderNvidia, "completion provider to use (nvidia or claude)")
	fs.StringVar(&c.NvidiaAPIKey, "nvidia-api-key", "", "API key for the NVIDIA inference endpoint")
	fs.StringVar(&c.NvidiaBaseURL, "nvidia-base-url", "", "NVIDIA inference base URL (empty = hosted endpoint)")
	fs.StringVar(&c.NvidiaModel, "nvidia-model", "meta/llama-3.1-70b-instruct", "model served by the NVIDIA endpoint")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.GeoAgentEndpoint, "geo-agent-endpoint", "", "geocoding agent URL (empty = GPS fallback only)")
	fs.StringVar(&c.GeoAgentAPIKey, "geo-agent-api-key", "", "API key for the geocoding agent")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the event store (empty = not used)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis logical database (0..15)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the event store (empty = not used)")
	fs.StringVar(&c.AuthToken, "auth-token", "", "bearer token required on mutating API routes (empty = auth disabled)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for high-severity notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The active completion provider must have its credentials set
	switch c.LLMProvider {
	case ProviderNvidia:
		if c.NvidiaAPIKey == "" {
			errs = append(errs, errors.New("NVIDIA_API_KEY is required"))
		}
		if c.NvidiaModel == "" {
			errs = append(errs, errors.New("NVIDIA_MODEL is required"))
		}
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be nvidia or claude)", c.LLMProvider))
	}

	if c.RedisDB < 0 || c.RedisDB > 15 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DB %d (must be 0..15)", c.RedisDB))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
