package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory used by the file and sqlite drivers
	Data string
	// Driver is the storage driver (memory, file, sqlite or mongo)
	Driver string
	// DSN points to where rolechat stores its own data.
	// For sqlite this is the database file, for mongo the connection URI.
	DSN string
	// Database is the mongo database name
	Database string
	// Version is the current version of server
	Version string

	// Model API Configuration
	OpenAIAPIKey  string // ROLECHAT_OPENAI_API_KEY (legacy: OPENAI_API_KEY)
	OpenAIBaseURL string // ROLECHAT_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	ChatModel     string // ROLECHAT_CHAT_MODEL (default: gpt-4o)
	AudioModel    string // ROLECHAT_AUDIO_MODEL (default: whisper-1)
	SpeechModel   string // ROLECHAT_SPEECH_MODEL (default: tts-1)
	SpeechVoice   string // ROLECHAT_SPEECH_VOICE (default: alloy)

	// Locale is the language hint passed to transcription.
	// Locale 是传递给语音转写的语言提示。
	Locale string // ROLECHAT_LOCALE (default: zh)

	// HistoryWindow bounds how many stored messages are replayed per turn.
	HistoryWindow int // ROLECHAT_HISTORY_WINDOW (default: 20)
	// MaxTokens bounds the model reply length.
	MaxTokens int // ROLECHAT_MAX_TOKENS (default: 500)
	// Temperature is the sampling temperature for chat completion.
	Temperature float32 // ROLECHAT_TEMPERATURE (default: 0.8)
	// ModelTimeout is the fixed timeout for a single outbound model call.
	ModelTimeout time.Duration // ROLECHAT_MODEL_TIMEOUT_SECONDS (default: 30)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasModelKey returns true if a model API credential is configured.
// Absence is a startup warning, not a hard failure: calls fail at call time.
func (p *Profile) HasModelKey() bool {
	return p.OpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Supports both ROLECHAT_* (new) and the original OPENAI_*/MONGODB_* names.
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(newKey, legacyKey string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		return os.Getenv(legacyKey)
	}
	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := getEnvWithFallback(newKey, legacyKey); val != "" {
			return val
		}
		return defaultValue
	}
	getIntEnvWithDefault := func(key string, defaultValue int) int {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				return n
			}
		}
		return defaultValue
	}

	p.OpenAIAPIKey = getEnvWithFallback("ROLECHAT_OPENAI_API_KEY", "OPENAI_API_KEY")
	p.OpenAIBaseURL = getEnvWithDefault("ROLECHAT_OPENAI_BASE_URL", "OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.ChatModel = getEnvOrDefault("ROLECHAT_CHAT_MODEL", "gpt-4o")
	p.AudioModel = getEnvOrDefault("ROLECHAT_AUDIO_MODEL", "whisper-1")
	p.SpeechModel = getEnvOrDefault("ROLECHAT_SPEECH_MODEL", "tts-1")
	p.SpeechVoice = getEnvOrDefault("ROLECHAT_SPEECH_VOICE", "alloy")
	p.Locale = getEnvOrDefault("ROLECHAT_LOCALE", "zh")

	if p.DSN == "" {
		p.DSN = getEnvWithFallback("ROLECHAT_DSN", "MONGODB_URI")
	}
	p.Database = getEnvWithDefault("ROLECHAT_DATABASE", "MONGODB_DATABASE", "ai_chat_system")

	p.HistoryWindow = getIntEnvWithDefault("ROLECHAT_HISTORY_WINDOW", 20)
	p.MaxTokens = getIntEnvWithDefault("ROLECHAT_MAX_TOKENS", 500)
	p.ModelTimeout = time.Duration(getIntEnvWithDefault("ROLECHAT_MODEL_TIMEOUT_SECONDS", 30)) * time.Second
	if p.Temperature == 0 {
		p.Temperature = 0.8
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		if err := os.MkdirAll(dataDir, 0o770); err != nil {
			return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
		}
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	switch p.Driver {
	case "":
		p.Driver = "memory"
	case "memory", "file", "sqlite", "mongo":
	default:
		return errors.Errorf("unknown storage driver %q: supported drivers are memory, file, sqlite and mongo", p.Driver)
	}

	if p.Driver == "file" || p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "data"
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("rolechat_%s.db", p.Mode)
		p.DSN = filepath.Join(p.Data, dbFile)
	}
	if p.Driver == "mongo" && p.DSN == "" {
		p.DSN = "mongodb://localhost:27017/"
	}

	if !p.HasModelKey() {
		slog.Warn("model API key is not configured; chat and voice requests will fail at call time")
	}

	return nil
}
