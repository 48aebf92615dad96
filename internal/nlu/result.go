package nlu

import (
	"encoding/json"
	"fmt"
)

const (
	QuestionRephrase = "I didn't understand the command. Can you rephrase it?"
	QuestionNotClear = "The response was not clear. Can you specify more details?"
	QuestionAPIError = "OpenAI API error occurred. Try again later."
	QuestionGeneric  = "Something went wrong. Try again."
)

// Result is either actionable (MissingInfo false, Intent and Parameters set)
// or a follow-up question (MissingInfo true, Question set). Never both.
type Result struct {
	MissingInfo bool           `json:"missing_info"`
	Intent      string         `json:"intent,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Question    string         `json:"question,omitempty"`
}

func Ask(question string) Result {
	return Result{MissingInfo: true, Question: question}
}

// Normalize drops fields that do not belong to the result's shape.
func (r Result) Normalize() Result {
	if r.MissingInfo {
		q := r.Question
		if q == "" {
			q = QuestionNotClear
		}
		return Ask(q)
	}

	params := r.Parameters
	if params == nil {
		params = map[string]any{}
	}

	return Result{Intent: r.Intent, Parameters: params}
}

func (r Result) String() string {
	if r.MissingInfo {
		return fmt.Sprintf("missing_info question=%q", r.Question)
	}
	return fmt.Sprintf("intent=%s parameters=%v", r.Intent, r.Parameters)
}

// ParseResult decodes a model reply into a normalized Result.
func ParseResult(text string) (Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return Result{}, err
	}
	return r.Normalize(), nil
}
