package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		LLMProvider:           ProviderNvidia,
		NvidiaAPIKey:          "nv-test-key",
		NvidiaModel:           "meta/llama-3.1-70b-instruct",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.LLMProvider != ProviderNvidia {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderNvidia)
	}
	if c.NvidiaModel != "meta/llama-3.1-70b-instruct" {
		t.Errorf("NvidiaModel = %q", c.NvidiaModel)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q", c.ClaudeModel)
	}
	if c.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", c.RedisDB)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-llm-provider", "claude",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-redis-addr", "localhost:6379",
		"-redis-db", "3",
		"-database-url", "postgres://localhost/beacon",
		"-geo-agent-endpoint", "http://agent:9000/invoke",
		"-auth-token", "tok",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.LLMProvider != ProviderClaude {
		t.Errorf("LLMProvider = %q, want claude", c.LLMProvider)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q", c.ClaudeAPIKey)
	}
	if c.RedisAddr != "localhost:6379" || c.RedisDB != 3 {
		t.Errorf("Redis = %q/%d", c.RedisAddr, c.RedisDB)
	}
	if c.DatabaseURL != "postgres://localhost/beacon" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.GeoAgentEndpoint != "http://agent:9000/invoke" {
		t.Errorf("GeoAgentEndpoint = %q", c.GeoAgentEndpoint)
	}
	if c.AuthToken != "tok" {
		t.Errorf("AuthToken = %q", c.AuthToken)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "minimum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.RedisDB = 15
			},
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			mutate:    func(c *Config) { c.DrainSeconds = -1 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name: "drain above max",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 301 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name: "budget equals drain",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds = 60, 60
			},
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name: "budget less than drain",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds = 60, 30
			},
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Provider selection
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.LLMProvider = "openai" },
			wantErr:   true,
			errSubstr: []string{"LLM_PROVIDER"},
		},
		{
			name:      "nvidia without key",
			mutate:    func(c *Config) { c.NvidiaAPIKey = "" },
			wantErr:   true,
			errSubstr: []string{"NVIDIA_API_KEY"},
		},
		{
			name:      "nvidia without model",
			mutate:    func(c *Config) { c.NvidiaModel = "" },
			wantErr:   true,
			errSubstr: []string{"NVIDIA_MODEL"},
		},
		{
			name: "claude without key",
			mutate: func(c *Config) {
				c.LLMProvider = ProviderClaude
				c.ClaudeModel = "claude-sonnet-4-20250514"
			},
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name: "claude credentials not required for nvidia",
			mutate: func(c *Config) {
				c.ClaudeAPIKey, c.ClaudeModel = "", ""
			},
			wantErr: false,
		},
		// Redis DB boundaries
		{
			name:      "redis db negative",
			mutate:    func(c *Config) { c.RedisDB = -1 },
			wantErr:   true,
			errSubstr: []string{"REDIS_DB"},
		},
		{
			name:      "redis db above max",
			mutate:    func(c *Config) { c.RedisDB = 16 },
			wantErr:   true,
			errSubstr: []string{"REDIS_DB"},
		},
		// Error accumulation
		{
			name: "many fields invalid",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 0, 0, 0
				c.NvidiaAPIKey = ""
				c.RedisDB = 99
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "NVIDIA_API_KEY", "REDIS_DB"},
		},
		{
			name: "extreme negative values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)

			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, redisDB int
		provider, key, model         string
	}{
		{60, 90, 8080, 0, "nvidia", "nv-test", "meta/llama-3.1-70b-instruct"},
		{1, 2, 1, 0, "nvidia", "k", "m"},
		{299, 300, 65535, 15, "claude", "k", "m"},
		{0, 0, 0, -1, "", "", ""},
		{300, 300, 65535, 16, "nvidia", "k", "m"},
		{150, 100, 8080, 3, "openai", "k", "m"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.redisDB, s.provider, s.key, s.model)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, redisDB int, provider, key, model string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			RedisDB:               redisDB,
			LLMProvider:           provider,
			NvidiaAPIKey:          key,
			NvidiaModel:           model,
			ClaudeAPIKey:          key,
			ClaudeModel:           model,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		redisOK := redisDB >= 0 && redisDB <= 15
		providerOK := (provider == ProviderNvidia || provider == ProviderClaude) && key != "" && model != ""

		allValid := drainOK && budgetOK && portOK && crossOK && redisOK && providerOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
