package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"voxweb/pkg/audioconv"
)

// Remote sends each phrase to the OpenAI transcription endpoint.
type Remote struct {
	client openai.Client
	model  openai.AudioModel
}

func NewRemote(client openai.Client, model string) *Remote {
	m := openai.AudioModel(model)
	if m == "" {
		m = openai.AudioModelWhisper1
	}
	return &Remote{client: client, model: m}
}

func (t *Remote) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	if len(pcm16k) == 0 {
		return Result{}, ErrNoAudio
	}

	// the encoder needs to seek back to patch the header
	f, err := os.CreateTemp("", "voxweb-*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := audioconv.EncodeWAV(f, pcm16k, audioconv.TargetRate); err != nil {
		return Result{}, fmt.Errorf("encode wav: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return Result{}, fmt.Errorf("rewind wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: t.model,
	}
	if opt.Language != "" && opt.Language != "auto" {
		params.Language = openai.String(opt.Language)
	}
	if opt.Prompt != "" {
		params.Prompt = openai.String(opt.Prompt)
	}
	if opt.Temperature != 0 {
		params.Temperature = openai.Float(float64(opt.Temperature))
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}

	return Result{
		Text:     strings.TrimSpace(res.Text),
		Language: opt.Language,
	}, nil
}
