package nlu

import (
	"fmt"
	"strings"
)

const promptTemplate = `
You are an AI browser automation assistant. Analyze the following information and decide on the best browser action.

Context: %s
User command: "%s"
Visible Text (snippet): %s

Generate a JSON response following EXACTLY one of these formats:

Format 1 (if the command is complete):
%s
Format 2 (if additional information is needed):
  %s

IMPORTANT: Provide ONLY the JSON object with no extra text or markdown.
`

const noContext = "No additional context."

type Example struct {
	Label string
	Reply string
}

// Examples are the actionable few-shot replies embedded in the prompt.
var Examples = []Example{
	{"opening a website", `{"missing_info": false, "intent": "open", "parameters": {"url": "https://www.youtube.com"}}`},
	{"searching on YouTube", `{"missing_info": false, "intent": "search", "parameters": {"query": "python tutorials"}}`},
	{"clicking a button", `{"missing_info": false, "intent": "click", "parameters": {"element_text": "Sign In"}}`},
	{"scrolling", `{"missing_info": false, "intent": "scroll", "parameters": {"direction": "down", "distance": 500}}`},
	{"filling a form", `{"missing_info": false, "intent": "fill_form", "parameters": {"field": "email", "value": "user@example.com"}}`},
	{"playing a video", `{"missing_info": false, "intent": "play_video", "parameters": {"video_index": 1}}`},
}

// MissingInfoExample is the follow-up reply shown to the model.
const MissingInfoExample = `{"missing_info": true, "question": "What additional information do you want to provide?"}`

var examplesBlock = func() string {
	var b strings.Builder
	for _, ex := range Examples {
		fmt.Fprintf(&b, "\n- Example for %s:\n  %s\n", ex.Label, ex.Reply)
	}
	return b.String()
}()

func buildPrompt(command, context, text string) string {
	if context == "" {
		context = noContext
	}
	return fmt.Sprintf(promptTemplate, context, command, text, examplesBlock, MissingInfoExample)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
