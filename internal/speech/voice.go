package speech

import (
	log "log/slog"
	"sync"
	"time"
)

const DefaultSettle = 500 * time.Millisecond

// Voice is a single speaking slot. A request that arrives while an
// utterance is playing is dropped, never queued.
type Voice struct {
	say    func(string) error
	settle time.Duration

	mu sync.Mutex
}

func NewVoice(say func(string) error, settle time.Duration) *Voice {
	if settle < 0 {
		settle = 0
	}
	return &Voice{say: say, settle: settle}
}

// Speak starts playing text in the background. It reports false when the
// slot is busy.
func (v *Voice) Speak(text string) bool {
	if text == "" {
		return false
	}
	if !v.mu.TryLock() {
		log.Warn("Voice busy, dropping utterance", "text", text)
		return false
	}

	log.Info("Speaking", "text", text)

	go func() {
		defer v.mu.Unlock()

		if err := v.say(text); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
		time.Sleep(v.settle)
	}()

	return true
}

// Wait blocks until the current utterance and its settle delay are over.
func (v *Voice) Wait() {
	v.mu.Lock()
	v.mu.Unlock()
}
