package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load([]string{"--env", filepath.Join(t.TempDir(), "none.env")})
	require.Error(t, err, "explicit env file must exist")
	assert.Nil(t, c)

	t.Chdir(t.TempDir())
	c, err = Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", c.APIKey)
	assert.Equal(t, log.LevelInfo, c.LogLevel)
	assert.Equal(t, "gpt-4o-mini", c.Model)
	assert.Equal(t, STTOpenAI, c.STT)
	assert.Equal(t, TTSEspeak, c.TTS)
	assert.Equal(t, "chromedp", c.Browser)
	assert.Equal(t, "/tmp/voxweb.sock", c.Socket)
	assert.Equal(t, 3, c.MaxFollowUps)
	assert.Equal(t, 1500*time.Millisecond, c.Pacing)
	assert.Empty(t, c.Proxy)
	assert.Empty(t, c.Bus)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("OPENAI_API_KEY=sk-from-file\n"), 0o600))

	c, err := Load([]string{
		"-e", env,
		"--log", "debug",
		"--browser", "playwright",
		"--headless",
		"--stt", "whisper",
		"--max-followups", "5",
		"--pacing", "0s",
	})
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", c.APIKey)
	assert.Equal(t, log.LevelDebug, c.LogLevel)
	assert.Equal(t, "playwright", c.Browser)
	assert.True(t, c.Headless)
	assert.Equal(t, STTWhisper, c.STT)
	assert.Equal(t, 5, c.MaxFollowUps)
	assert.Zero(t, c.Pacing)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Chdir(t.TempDir())

	for _, args := range [][]string{
		{"--log", "verbose"},
		{"--stt", "google"},
		{"--tts", "say"},
		{"--browser", "firefox"},
		{"--max-followups", "0"},
		{"--pacing", "-1s"},
		{"--no-such-flag"},
	} {
		_, err := Load(args)
		assert.Error(t, err, "%v", args)
	}
}
