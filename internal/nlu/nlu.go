package nlu

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const DefaultSnippetLen = 500

var fenceRe = regexp.MustCompile("```json|```")

type Request struct {
	Command    string
	Context    string // page title, URL and visible text
	PageSource string
	Text       string // text extracted from the rendered page
}

type Interpreter struct {
	client     openai.Client
	model      string
	snippetLen int
}

func NewInterpreter(client openai.Client, model string) *Interpreter {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Interpreter{
		client:     client,
		model:      model,
		snippetLen: DefaultSnippetLen,
	}
}

// Interpret classifies req.Command. It never fails: every error degrades to
// a follow-up question for the user.
func (in *Interpreter) Interpret(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Interpreter panicked", "panic", r)
			res = Ask(QuestionGeneric)
		}
	}()

	source := truncate(req.PageSource, in.snippetLen)
	text := truncate(req.Text, in.snippetLen)

	log.Debug("Interpreting", "command", req.Command, "source_len", len(source), "text_len", len(text))

	reply, err := in.complete(ctx, buildPrompt(req.Command, req.Context, text))
	if err != nil {
		var apiErr *openai.Error
		switch {
		case errors.As(err, &apiErr):
			log.Error("OpenAI API error", "status", apiErr.StatusCode, "err", err)
			return Ask(QuestionAPIError)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Warn("Interpretation interrupted", "err", err)
			return Ask(QuestionGeneric)
		default:
			log.Error("Failed to call API", "err", err)
			return Ask(QuestionAPIError)
		}
	}

	reply = strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(reply), ""))
	if reply == "" {
		log.Error("Model returned an empty response")
		return Ask(QuestionRephrase)
	}

	out, err := ParseResult(reply)
	if err != nil {
		log.Error("Model returned invalid JSON", "raw", reply, "err", err)
		return Ask(QuestionNotClear)
	}

	log.Debug("Processed", "data", reply)

	return out
}

func (in *Interpreter) complete(ctx context.Context, prompt string) (string, error) {
	stream := in.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
		},
		Model: in.model,
	})
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		b.WriteString(chunk.Choices[0].Delta.Content)
	}

	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("chat completion stream: %w", err)
	}

	return b.String(), nil
}
