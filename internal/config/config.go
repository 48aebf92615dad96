// Package config reads the daemon's flags and .env file.
package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"voxweb/internal/assistant"
	"voxweb/internal/browser"
	"voxweb/internal/ipc"
)

const (
	STTOpenAI  = "openai"
	STTWhisper = "whisper"

	TTSEspeak = "espeak"
	TTSOpenAI = "openai"
)

var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type Config struct {
	APIKey   string
	LogLevel log.Level
	Proxy    string

	Model        string
	STT          string
	WhisperModel string
	Language     string
	TTS          string
	Voice        string

	Browser    string
	Headless   bool
	Chrome     string
	Screenshot string

	Socket string
	Bus    string
	Beep   string

	MaxFollowUps int
	Pacing       time.Duration
}

// Load parses args (without the program name), then loads the env file it
// names. Variables already set in the environment win.
func Load(args []string) (*Config, error) {
	fs := cli.NewFlagSet("voxweb-daemon", cli.ContinueOnError)

	var (
		c        Config
		envFile  string
		logLevel string
	)
	fs.StringVarP(&envFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&logLevel, "log", "l", "info", "Log level (debug|info|warn|error)")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "SOCKS5 proxy address, empty to dial directly")
	fs.StringVarP(&c.Model, "model", "m", "gpt-4o-mini", "Chat model used to interpret commands")
	fs.StringVar(&c.STT, "stt", STTOpenAI, "Speech recognizer (openai|whisper)")
	fs.StringVar(&c.WhisperModel, "whisper-model", "third_party/whisper.cpp/models/ggml-medium.bin", "Local whisper.cpp model")
	fs.StringVar(&c.Language, "lang", "en", "Spoken language, or auto")
	fs.StringVar(&c.TTS, "tts", TTSEspeak, "Speech synthesizer (espeak|openai)")
	fs.StringVar(&c.Voice, "voice", "", "Voice name (espeak language or OpenAI voice)")
	fs.StringVarP(&c.Browser, "browser", "b", browser.DriverChromedp, "Browser driver (chromedp|playwright)")
	fs.BoolVar(&c.Headless, "headless", false, "Run the browser headless")
	fs.StringVar(&c.Chrome, "chrome", "", "Chrome executable, empty for the system one")
	fs.StringVar(&c.Screenshot, "screenshot", "screenshot.png", "Screenshot path, empty disables")
	fs.StringVarP(&c.Socket, "socket", "s", ipc.DefaultSocketPath, "Control socket path")
	fs.StringVar(&c.Bus, "bus", "", "Websocket hub url, empty disables")
	fs.StringVar(&c.Beep, "beep", "", "Mp3 cue played before listening, empty disables")
	fs.IntVar(&c.MaxFollowUps, "max-followups", assistant.DefaultMaxFollowUps, "Follow-up questions per command")
	fs.DurationVar(&c.Pacing, "pacing", assistant.DefaultPacing, "Delay before each interpretation")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	lvl, ok := logLevelMap[logLevel]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
	c.LogLevel = lvl

	if err := c.validate(); err != nil {
		return nil, err
	}

	if err := godotenv.Load(envFile); err != nil && !(errors.Is(err, os.ErrNotExist) && !fs.Changed("env")) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	c.APIKey = os.Getenv("OPENAI_API_KEY")
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.STT {
	case STTOpenAI, STTWhisper:
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT)
	}
	switch c.TTS {
	case TTSEspeak, TTSOpenAI:
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS)
	}
	switch c.Browser {
	case browser.DriverChromedp, browser.DriverPlaywright:
	default:
		return fmt.Errorf("unknown browser driver %q", c.Browser)
	}
	if c.MaxFollowUps < 1 {
		return fmt.Errorf("max-followups must be >= 1, got %d", c.MaxFollowUps)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative, got %s", c.Pacing)
	}
	return nil
}
