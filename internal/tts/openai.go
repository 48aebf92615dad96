package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/openai/openai-go/v3"

	"voxweb/internal/notify"
)

const speechTimeout = 30 * time.Second

// Remote synthesizes speech with the OpenAI speech endpoint and plays the
// returned mp3.
type Remote struct {
	client openai.Client
	voice  openai.AudioSpeechNewParamsVoice
	play   func(io.ReadCloser) error
}

func NewRemote(client openai.Client, voice string) *Remote {
	if voice == "" {
		voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	return &Remote{
		client: client,
		voice:  openai.AudioSpeechNewParamsVoice(voice),
		play:   notify.PlayMP3,
	}
}

func (r *Remote) Say(text string) error {
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), speechTimeout)
	defer cancel()

	resp, err := r.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          r.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}

	return r.play(resp.Body)
}
