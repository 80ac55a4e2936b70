package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// PromotionThreshold is the minimum activation certainty required for a
	// countdown to auto-promotion to start. Range 0.0-1.0.
	PromotionThreshold float64 `json:"promotion_threshold"`

	// CountdownTicks is the number of countdown ticks before an activation
	// in summary mode auto-promotes to full.
	CountdownTicks int `json:"countdown_ticks"`

	// CountdownTickMillis is the length of one countdown tick in
	// milliseconds. Tests lower this to keep runs fast.
	CountdownTickMillis int `json:"countdown_tick_ms,omitempty"`

	// LLMAPIBase is the base URL of an OpenAI-compatible chat completions
	// endpoint. Defaults to the OpenAI API.
	LLMAPIBase string `json:"llm_api_base,omitempty"`

	// LLMModel is the model name sent with intent-resolution requests.
	LLMModel string `json:"llm_model,omitempty"`

	// LLMAPIKeyEnv names the environment variable holding the API key.
	LLMAPIKeyEnv string `json:"llm_api_key_env,omitempty"`

	// DisabledCapabilities is a list of capability identifiers to exclude
	// from registration. Unknown names are logged as warnings.
	DisabledCapabilities []string `json:"disabled_capabilities,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PromotionThreshold:  0.8,
		CountdownTicks:      3,
		CountdownTickMillis: 1000,
		LLMAPIBase:          "https://api.openai.com/v1",
		LLMModel:            "gpt-4o-mini",
		LLMAPIKeyEnv:        "OPENAI_API_KEY",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.prism.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.prism) and repo
// (.prism) directories. Repo config is found by walking upward from startDir
// to the nearest .prism/config.json. Repo config takes precedence for scalar
// values; arrays are merged (deduplicated). Either or both may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .prism/config.json. Returns the path if found, or empty string if not.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".prism", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.PromotionThreshold = overlay.PromotionThreshold
	if result.PromotionThreshold == 0 {
		result.PromotionThreshold = base.PromotionThreshold
	}

	result.CountdownTicks = overlay.CountdownTicks
	if result.CountdownTicks == 0 {
		result.CountdownTicks = base.CountdownTicks
	}

	result.CountdownTickMillis = overlay.CountdownTickMillis
	if result.CountdownTickMillis == 0 {
		result.CountdownTickMillis = base.CountdownTickMillis
	}

	result.LLMAPIBase = overlay.LLMAPIBase
	if result.LLMAPIBase == "" {
		result.LLMAPIBase = base.LLMAPIBase
	}

	result.LLMModel = overlay.LLMModel
	if result.LLMModel == "" {
		result.LLMModel = base.LLMModel
	}

	result.LLMAPIKeyEnv = overlay.LLMAPIKeyEnv
	if result.LLMAPIKeyEnv == "" {
		result.LLMAPIKeyEnv = base.LLMAPIKeyEnv
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Arrays: merge and deduplicate
	result.DisabledCapabilities = mergeStringSlice(base.DisabledCapabilities, overlay.DisabledCapabilities)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
