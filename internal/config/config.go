package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDiffBaseURL is where rn-diff-purge publishes raw upgrade diffs.
const DefaultDiffBaseURL = "https://raw.githubusercontent.com/react-native-community/rn-diff-purge/diffs/diffs"

// Config holds application configuration.
type Config struct {
	// Model is the chat model used for upgrades and chat turns.
	Model string `json:"model,omitempty"`

	// EmbeddingModel is the model used to embed files and tasks.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// APIBaseURL overrides the OpenAI-compatible endpoint (OPENAI_BASE_URL wins when set).
	APIBaseURL string `json:"api_base_url,omitempty"`

	// DiffBaseURL is the directory URL holding "<from>..<to>.diff" files.
	DiffBaseURL string `json:"diff_base_url,omitempty"`

	// FileLengthLimit caps the characters of a single file inlined into a prompt.
	FileLengthLimit int `json:"file_length_limit,omitempty"`

	// TotalFileLengthLimit caps the characters of all files inlined in one turn.
	TotalFileLengthLimit int `json:"total_file_length_limit,omitempty"`

	// RelevanceThreshold is the minimum similarity for a file to be re-presented.
	RelevanceThreshold float64 `json:"relevance_threshold,omitempty"`

	// HistoryWindow is how many trailing messages the assembler looks at,
	// including the latest one.
	HistoryWindow int `json:"history_window,omitempty"`

	// MaxPromptTokens is the estimated token ceiling for one chat prompt.
	MaxPromptTokens int `json:"max_prompt_tokens,omitempty"`

	// AgeKeepRecent is how many recent chat messages are never shortened.
	AgeKeepRecent int `json:"age_keep_recent,omitempty"`

	// AgeMaxChars is the length older chat messages are shortened to.
	AgeMaxChars int `json:"age_max_chars,omitempty"`

	// MaxRetries bounds the provider retry wrapper.
	MaxRetries int `json:"max_retries,omitempty"`

	// RetryDelaySeconds is the fallback delay when the provider gives no reset hint.
	RetryDelaySeconds int `json:"retry_delay_seconds,omitempty"`

	// MaxToolRounds bounds readFile/listFiles round trips within one chat turn.
	MaxToolRounds int `json:"max_tool_rounds,omitempty"`

	// ListMaxDepth bounds directory listing depth.
	ListMaxDepth int `json:"list_max_depth,omitempty"`

	// IgnorePatterns are doublestar globs of diff paths that are never upgraded.
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`

	// ListIgnore are doublestar globs excluded from directory listings.
	ListIgnore []string `json:"list_ignore,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:                "gpt-4",
		EmbeddingModel:       "text-embedding-ada-002",
		DiffBaseURL:          DefaultDiffBaseURL,
		FileLengthLimit:      8000,
		TotalFileLengthLimit: 24000,
		RelevanceThreshold:   0.7,
		HistoryWindow:        10,
		MaxPromptTokens:      6000,
		AgeKeepRecent:        20,
		AgeMaxChars:          2000,
		MaxRetries:           3,
		RetryDelaySeconds:    20,
		MaxToolRounds:        5,
		ListMaxDepth:         6,
		ListIgnore:           []string{".git", "node_modules", "Pods", "build", ".gradle"},
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global base dir and the
// nearest repo .rnupgrade directory found walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .rnupgrade/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".rnupgrade", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
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

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		Model:                firstString(overlay.Model, base.Model),
		EmbeddingModel:       firstString(overlay.EmbeddingModel, base.EmbeddingModel),
		APIBaseURL:           firstString(overlay.APIBaseURL, base.APIBaseURL),
		DiffBaseURL:          firstString(overlay.DiffBaseURL, base.DiffBaseURL),
		FileLengthLimit:      firstInt(overlay.FileLengthLimit, base.FileLengthLimit),
		TotalFileLengthLimit: firstInt(overlay.TotalFileLengthLimit, base.TotalFileLengthLimit),
		RelevanceThreshold:   firstFloat(overlay.RelevanceThreshold, base.RelevanceThreshold),
		HistoryWindow:        firstInt(overlay.HistoryWindow, base.HistoryWindow),
		MaxPromptTokens:      firstInt(overlay.MaxPromptTokens, base.MaxPromptTokens),
		AgeKeepRecent:        firstInt(overlay.AgeKeepRecent, base.AgeKeepRecent),
		AgeMaxChars:          firstInt(overlay.AgeMaxChars, base.AgeMaxChars),
		MaxRetries:           firstInt(overlay.MaxRetries, base.MaxRetries),
		RetryDelaySeconds:    firstInt(overlay.RetryDelaySeconds, base.RetryDelaySeconds),
		MaxToolRounds:        firstInt(overlay.MaxToolRounds, base.MaxToolRounds),
		ListMaxDepth:         firstInt(overlay.ListMaxDepth, base.ListMaxDepth),
		DBMaxOpenConns:       firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		IgnorePatterns:       mergeStringSlice(base.IgnorePatterns, overlay.IgnorePatterns),
		ListIgnore:           mergeStringSlice(base.ListIgnore, overlay.ListIgnore),
		DisabledTools:        mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstFloat(overlay, base float64) float64 {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
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
