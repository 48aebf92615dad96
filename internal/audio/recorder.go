package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture opens the default input device, calibrates against ambient noise
// and returns one phrase of 16 kHz mono PCM.
func (r *Recorder) Capture(ctx context.Context, opt ListenOptions) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	det := newDetector(opt)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}

		done, err := det.Feed(buf)
		if err != nil {
			return nil, err
		}
		if done {
			return det.Samples(), nil
		}
	}
}
