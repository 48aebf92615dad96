package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"

	"voxweb/internal/assistant"
	"voxweb/internal/audio"
	"voxweb/internal/browser"
	"voxweb/internal/bus"
	"voxweb/internal/config"
	"voxweb/internal/ipc"
	"voxweb/internal/nlu"
	"voxweb/internal/notify"
	"voxweb/internal/proxy"
	"voxweb/internal/speech"
	"voxweb/internal/tts"
	"voxweb/pkg/stt"
)

const sttPrompt = "Browser voice commands: open, click, scroll, fill the form, search, play video."

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.SetDefault(log.New(tint.NewHandler(os.Stdout, nil)))
		log.Error("Failed to load config", "err", err)
		return 1
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	})))

	log.Info("Booting up")

	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		return 1
	}

	log.Debug("Loaded proxy", "proxy", cfg.Proxy)

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	)

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		return 1
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	var tr speech.Transcriber
	switch cfg.STT {
	case config.STTWhisper:
		local, err := stt.NewLocal(cfg.WhisperModel)
		if err != nil {
			log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
			return 1
		}
		defer local.Close()
		tr = local
	default:
		tr = stt.NewRemote(client, "")
	}

	log.Debug("Loaded transcriber", "backend", cfg.STT)

	var say func(string) error
	switch cfg.TTS {
	case config.TTSOpenAI:
		say = tts.NewRemote(client, cfg.Voice).Say
	default:
		lang := cfg.Voice
		if lang == "" {
			lang = cfg.Language
		}
		say = tts.Espeak{Lang: lang}.Say
	}
	voice := speech.NewVoice(say, speech.DefaultSettle)

	ears := speech.NewListener(rec, tr, audio.DefaultListenOptions(), stt.Options{
		Language: cfg.Language,
		Prompt:   sttPrompt,
	})
	pageOpts := browser.Options{
		Driver:     cfg.Browser,
		Headless:   cfg.Headless,
		ExecPath:   cfg.Chrome,
		Screenshot: cfg.Screenshot,
	}
	ears.Ducker = audio.NewDucker(pageOpts.AudioApps(), 10)
	if cfg.Beep != "" {
		ears.Cue = func() error { return notify.Beep(cfg.Beep) }
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	page, err := browser.Open(ctx, pageOpts)
	if err != nil {
		log.Error("Failed to open browser", "driver", cfg.Browser, "err", err)
		return 1
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Warn("Failed to close browser", "err", err)
		}
	}()

	log.Debug("Loaded browser", "driver", cfg.Browser)

	asst := assistant.New(ears, voice, nlu.NewInterpreter(client, cfg.Model), page, assistant.Config{
		MaxFollowUps: cfg.MaxFollowUps,
		Pacing:       cfg.Pacing,
	})

	var hub *bus.Bus
	if cfg.Bus != "" {
		hub, err = bus.New(cfg.Bus, "voxweb")
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.Bus, "err", err)
			hub = nil
		} else {
			defer hub.Close()
			asst.Reporter = hub
		}
	}

	log.Info("Boot up - successful")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return asst.Run(gctx)
	})
	if hub != nil {
		g.Go(func() error {
			return hub.Listen(gctx, func(m bus.Message) {
				asst.Submit(m.Content)
			})
		})
	}
	g.Go(func() error {
		return ipc.Serve(gctx, cfg.Socket, func(msg ipc.ControlMessage) {
			switch msg.Cmd {
			case ipc.CmdSay:
				asst.Submit(msg.Text)
			case ipc.CmdAudio:
				if text, ok := ears.ListenFile(gctx, msg.Text); ok {
					asst.Submit(text)
				}
			case ipc.CmdStop:
				log.Info("Stop requested")
				cancel()
			default:
				log.Warn("Unknown command", "cmd", msg.Cmd)
			}
		})
	})

	if err := g.Wait(); err != nil {
		log.Error("Daemon failed", "err", err)
		return 1
	}

	voice.Wait()
	log.Info("Shut down")
	return 0
}
