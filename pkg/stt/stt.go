// Package stt turns 16 kHz mono PCM into text, either with a local
// whisper.cpp model or the hosted OpenAI transcription endpoint.
package stt

import "errors"

var ErrNoAudio = errors.New("no audio samples provided")

type Options struct {
	Language    string  // "auto", "en", "ru", ...
	Threads     int     // local only; <=0 => NumCPU()
	Prompt      string  // vocabulary hint
	BeamSize    int     // local only; 0 = greedy
	Temperature float32 // 0 = default
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}
