package speech

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"voxweb/internal/audio"
	"voxweb/pkg/audioconv"
	"voxweb/pkg/stt"
)

type Capturer interface {
	Capture(ctx context.Context, opt audio.ListenOptions) ([]float32, error)
}

type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error)
}

type Ducker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Restore(ctx context.Context, duration time.Duration) error
}

const (
	duckFactor = 0.2
	duckFade   = 300 * time.Millisecond
)

type Listener struct {
	mic    Capturer
	tr     Transcriber
	listen audio.ListenOptions
	stt    stt.Options

	// optional
	Ducker Ducker
	Cue    func() error
}

func NewListener(mic Capturer, tr Transcriber, listen audio.ListenOptions, opt stt.Options) *Listener {
	return &Listener{mic: mic, tr: tr, listen: listen, stt: opt}
}

// Listen records one phrase from the microphone and returns its lower-cased
// transcription. It reports false on silence, empty transcription or any
// failure.
func (l *Listener) Listen(ctx context.Context) (string, bool) {
	if l.Cue != nil {
		if err := l.Cue(); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}

	if l.Ducker != nil {
		if err := l.Ducker.Duck(ctx, duckFactor, duckFade); err != nil {
			log.Warn("Failed to duck streams", "err", err)
		}
		defer func() {
			// restore even when ctx is already cancelled
			if err := l.Ducker.Restore(context.WithoutCancel(ctx), duckFade); err != nil {
				log.Warn("Failed to restore streams", "err", err)
			}
		}()
	}

	log.Info("Listening")

	pcm, err := l.mic.Capture(ctx, l.listen)
	switch {
	case errors.Is(err, audio.ErrNoSpeech):
		log.Info("No speech detected")
		return "", false
	case err != nil:
		log.Error("Failed to record", "err", err)
		return "", false
	}

	log.Debug("Recorded", "samples", len(pcm))

	return l.transcribe(ctx, pcm)
}

// ListenFile transcribes a wav, mp3 or ogg file as if it had been spoken.
func (l *Listener) ListenFile(ctx context.Context, path string) (string, bool) {
	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{})
	if err != nil {
		log.Error("Failed to decode audio", "path", path, "err", err)
		return "", false
	}

	return l.transcribe(ctx, pcm)
}

func (l *Listener) transcribe(ctx context.Context, pcm []float32) (string, bool) {
	res, err := l.tr.TranscribePCM(ctx, pcm, l.stt)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return "", false
	}

	text := strings.ToLower(strings.TrimSpace(res.Text))
	if text == "" {
		log.Info("Could not understand audio")
		return "", false
	}

	log.Info("Transcribed", "text", text)
	return text, true
}
