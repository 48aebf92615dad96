package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer answers chat completions with the given fragments as SSE
// chunks and records the request body.
func streamServer(t *testing.T, fragments []string, body *map[string]any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
			return
		}
		if body != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, body)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for i, f := range fragments {
			chunk := map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"created": 1700000000 + i,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{
					{"index": 0, "delta": map[string]any{"content": f}, "finish_reason": nil},
				},
			}
			data, err := json.Marshal(chunk)
			if err != nil {
				http.Error(w, "marshal chunk failed", http.StatusInternalServerError)
				return
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestInterpreter(t *testing.T, baseURL string) *Interpreter {
	t.Helper()

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewInterpreter(client, "")
}

func TestInterpretStreamsAndParses(t *testing.T) {
	var body map[string]any
	server := streamServer(t, []string{
		"```json\n",
		`{"missing_info": false, "intent": "open", `,
		`"parameters": {"url": "https://www.youtube.com"}}`,
		"\n```",
	}, &body)
	defer server.Close()

	in := newTestInterpreter(t, server.URL)
	res := in.Interpret(context.Background(), Request{
		Command: "open youtube",
		Context: "Current Page: New Tab\nURL: about:blank\nVisible Text: ",
		Text:    "hello",
	})

	assert.Equal(t, Result{
		Intent:     "open",
		Parameters: map[string]any{"url": "https://www.youtube.com"},
	}, res)

	assert.Equal(t, true, body["stream"])
	assert.Equal(t, "gpt-4o-mini", body["model"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "system", msg["role"])
	assert.Contains(t, msg["content"], `User command: "open youtube"`)
	assert.Contains(t, msg["content"], "Visible Text (snippet): hello")
}

func TestInterpretMissingInfo(t *testing.T) {
	server := streamServer(t, []string{
		`{"missing_info": true, "question": "What do you want to search for?"}`,
	}, nil)
	defer server.Close()

	res := newTestInterpreter(t, server.URL).Interpret(context.Background(), Request{Command: "search"})
	assert.Equal(t, Ask("What do you want to search for?"), res)
}

func TestInterpretTruncatesSnippet(t *testing.T) {
	var body map[string]any
	server := streamServer(t, []string{`{"missing_info": true, "question": "?"}`}, &body)
	defer server.Close()

	long := strings.Repeat("é", 600) + "TAIL"
	newTestInterpreter(t, server.URL).Interpret(context.Background(), Request{Command: "x", Text: long})

	content := body["messages"].([]any)[0].(map[string]any)["content"].(string)
	assert.Contains(t, content, strings.Repeat("é", 500))
	assert.NotContains(t, content, strings.Repeat("é", 501))
	assert.NotContains(t, content, "TAIL")
	assert.Contains(t, content, "Context: "+noContext)
}

func TestInterpretFailuresDegradeToQuestions(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{"empty", []string{"", "  "}, QuestionRephrase},
		{"only fences", []string{"```json", "```"}, QuestionRephrase},
		{"not json", []string{"Sure! I will open YouTube for you."}, QuestionNotClear},
		{"truncated json", []string{`{"missing_info": false, "intent": "open"`}, QuestionNotClear},
		{"wrong type", []string{`["open"]`}, QuestionNotClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := streamServer(t, tt.fragments, nil)
			defer server.Close()

			res := newTestInterpreter(t, server.URL).Interpret(context.Background(), Request{Command: "x"})
			assert.Equal(t, Ask(tt.want), res)
		})
	}
}

func TestInterpretAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer server.Close()

	res := newTestInterpreter(t, server.URL).Interpret(context.Background(), Request{Command: "x"})
	assert.Equal(t, Ask(QuestionAPIError), res)
}

func TestInterpretCanceled(t *testing.T) {
	server := streamServer(t, []string{`{"missing_info": true, "question": "?"}`}, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestInterpreter(t, server.URL).Interpret(ctx, Request{Command: "x"})
	assert.Equal(t, Ask(QuestionGeneric), res)
}

func TestExamplesRoundTrip(t *testing.T) {
	prompt := buildPrompt("open youtube", "", "")

	assert.Contains(t, prompt, "- Example for scrolling:\n  {")

	replies := []string{MissingInfoExample}
	for _, ex := range Examples {
		replies = append(replies, ex.Reply)
	}

	for _, ex := range replies {
		assert.Contains(t, prompt, ex)

		res, err := ParseResult(ex)
		require.NoError(t, err, ex)

		data, err := json.Marshal(res)
		require.NoError(t, err)

		var want, got map[string]any
		require.NoError(t, json.Unmarshal([]byte(ex), &want))
		require.NoError(t, json.Unmarshal(data, &got))

		assert.Equal(t, want, got, ex)
	}
}

func TestNormalizeKeepsOneShape(t *testing.T) {
	r := Result{MissingInfo: true, Intent: "open", Parameters: map[string]any{"url": "x"}}
	assert.Equal(t, Ask(QuestionNotClear), r.Normalize())

	r = Result{Intent: "scroll", Question: "why?"}
	assert.Equal(t, Result{Intent: "scroll", Parameters: map[string]any{}}, r.Normalize())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "日本", truncate("日本語", 2))
}
