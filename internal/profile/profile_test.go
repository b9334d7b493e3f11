package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := &Profile{}
		p.FromEnv()

		assert.Equal(t, "https://api.openai.com/v1", p.OpenAIBaseURL)
		assert.Equal(t, "gpt-4o", p.ChatModel)
		assert.Equal(t, "whisper-1", p.AudioModel)
		assert.Equal(t, "zh", p.Locale)
		assert.Equal(t, 20, p.HistoryWindow)
		assert.Equal(t, 500, p.MaxTokens)
		assert.Equal(t, 30*time.Second, p.ModelTimeout)
	})

	t.Run("LegacyKeyFallback", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-legacy")
		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "sk-legacy", p.OpenAIAPIKey)
	})

	t.Run("NewKeyWinsOverLegacy", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-legacy")
		t.Setenv("ROLECHAT_OPENAI_API_KEY", "sk-new")
		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "sk-new", p.OpenAIAPIKey)
	})

	t.Run("MongoEnvNames", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "mongodb://db:27017/")
		t.Setenv("MONGODB_DATABASE", "chat_test")
		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "mongodb://db:27017/", p.DSN)
		assert.Equal(t, "chat_test", p.Database)
	})
}

func TestProfileValidate(t *testing.T) {
	t.Run("DefaultsToMemoryDriver", func(t *testing.T) {
		p := &Profile{Mode: "dev"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "memory", p.Driver)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres"}
		assert.Error(t, p.Validate())
	})

	t.Run("SqliteDefaultDSN", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Contains(t, p.DSN, "rolechat_dev.db")
	})

	t.Run("MongoDefaultDSN", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mongo"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "mongodb://localhost:27017/", p.DSN)
	})

	t.Run("BadModeCoerced", func(t *testing.T) {
		p := &Profile{Mode: "demo"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
	})
}
