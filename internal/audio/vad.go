package audio

import (
	"errors"
	"math"
	"time"
)

var ErrNoSpeech = errors.New("no speech before timeout")

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms

	minEnergyThreshold = 0.01
	dynamicRatio       = 1.5
)

type ListenOptions struct {
	Calibration    time.Duration // ambient-noise sampling before listening
	OnsetTimeout   time.Duration // how long to wait for speech to start
	PhraseLimit    time.Duration // maximum phrase length
	PauseThreshold time.Duration // trailing silence that ends a phrase
}

func DefaultListenOptions() ListenOptions {
	return ListenOptions{
		Calibration:    2 * time.Second,
		OnsetTimeout:   7 * time.Second,
		PhraseLimit:    6 * time.Second,
		PauseThreshold: 800 * time.Millisecond,
	}
}

// detector segments a stream of fixed-size frames into one phrase.
type detector struct {
	opt       ListenOptions
	threshold float64

	calibrated  time.Duration
	calibFrames int
	calibSum    float64

	waited   time.Duration
	speaking bool
	phrase   time.Duration
	silence  time.Duration

	out []float32
}

func newDetector(opt ListenOptions) *detector {
	return &detector{
		opt:       opt,
		threshold: minEnergyThreshold,
	}
}

// Feed consumes one frame. It reports done when the phrase is complete and
// ErrNoSpeech when the onset timeout passes in silence.
func (d *detector) Feed(frame []float32) (bool, error) {
	dur := time.Duration(len(frame)) * time.Second / SampleRate
	rms := frameRMS(frame)

	if d.calibrated < d.opt.Calibration {
		d.calibrated += dur
		d.calibFrames++
		d.calibSum += rms
		d.threshold = math.Max(minEnergyThreshold, d.calibSum/float64(d.calibFrames)*dynamicRatio)
		return false, nil
	}

	if !d.speaking {
		if rms <= d.threshold {
			d.waited += dur
			if d.opt.OnsetTimeout > 0 && d.waited >= d.opt.OnsetTimeout {
				return false, ErrNoSpeech
			}
			return false, nil
		}
		d.speaking = true
	}

	d.out = append(d.out, frame...)
	d.phrase += dur

	if rms > d.threshold {
		d.silence = 0
	} else {
		d.silence += dur
	}

	if d.opt.PauseThreshold > 0 && d.silence >= d.opt.PauseThreshold {
		return true, nil
	}
	if d.opt.PhraseLimit > 0 && d.phrase >= d.opt.PhraseLimit {
		return true, nil
	}

	return false, nil
}

func (d *detector) Threshold() float64 { return d.threshold }

func (d *detector) Samples() []float32 { return d.out }

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
