package action

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Intent string

const (
	IntentOpen      Intent = "open"
	IntentClick     Intent = "click"
	IntentScroll    Intent = "scroll"
	IntentFillForm  Intent = "fill_form"
	IntentSearch    Intent = "search"
	IntentPlayVideo Intent = "play_video"
)

var (
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrMissingParam    = errors.New("missing parameter")
	ErrUnexpectedParam = errors.New("unexpected parameter")
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrElementNotFound = errors.New("element not found")
)

const (
	defaultScrollDistance = 500
	defaultVideoIndex     = 1
)

// Action is one browser operation with its typed payload. The set of
// implementations is closed: only this package can add one.
type Action interface {
	Intent() Intent
	isAction()
}

type Open struct {
	URL string
}

type Click struct {
	ElementText string
}

type Scroll struct {
	Direction string // "up" or "down"
	Distance  int
}

type FillForm struct {
	Field string
	Value string
}

type Search struct {
	Query string
}

type PlayVideo struct {
	Index int // 1-based
}

func (Open) Intent() Intent      { return IntentOpen }
func (Click) Intent() Intent     { return IntentClick }
func (Scroll) Intent() Intent    { return IntentScroll }
func (FillForm) Intent() Intent  { return IntentFillForm }
func (Search) Intent() Intent    { return IntentSearch }
func (PlayVideo) Intent() Intent { return IntentPlayVideo }

func (Open) isAction()      {}
func (Click) isAction()     {}
func (Scroll) isAction()    {}
func (FillForm) isAction()  {}
func (Search) isAction()    {}
func (PlayVideo) isAction() {}

var allowedParams = map[Intent][]string{
	IntentOpen:      {"url"},
	IntentClick:     {"element_text"},
	IntentScroll:    {"direction", "distance"},
	IntentFillForm:  {"field", "value"},
	IntentSearch:    {"query"},
	IntentPlayVideo: {"video_index"},
}

// Parse builds the action for intent from the untyped parameters returned by
// the interpreter. Every parameter problem is reported here, before any
// browser interaction.
func Parse(intent string, params map[string]any) (Action, error) {
	in := Intent(intent)

	allowed, ok := allowedParams[in]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}

	if err := checkUnexpected(in, allowed, params); err != nil {
		return nil, err
	}

	switch in {
	case IntentOpen:
		url, err := requireString(in, params, "url")
		if err != nil {
			return nil, err
		}
		return Open{URL: url}, nil

	case IntentClick:
		text, err := requireString(in, params, "element_text")
		if err != nil {
			return nil, err
		}
		return Click{ElementText: text}, nil

	case IntentScroll:
		dir := "down"
		if v, ok := optionalString(params, "direction"); ok && strings.EqualFold(strings.TrimSpace(v), "up") {
			dir = "up"
		}
		dist, err := optionalInt(in, params, "distance", defaultScrollDistance)
		if err != nil {
			return nil, err
		}
		if dist < 0 {
			dist = -dist
		}
		return Scroll{Direction: dir, Distance: dist}, nil

	case IntentFillForm:
		field, err := requireString(in, params, "field")
		if err != nil {
			return nil, err
		}
		value, err := requireText(in, params, "value")
		if err != nil {
			return nil, err
		}
		return FillForm{Field: field, Value: value}, nil

	case IntentSearch:
		q, err := requireString(in, params, "query")
		if err != nil {
			return nil, err
		}
		return Search{Query: q}, nil

	case IntentPlayVideo:
		idx, err := optionalInt(in, params, "video_index", defaultVideoIndex)
		if err != nil {
			return nil, err
		}
		if idx < 1 {
			return nil, fmt.Errorf("%w: %s video_index must be >= 1, got %d", ErrInvalidParam, in, idx)
		}
		return PlayVideo{Index: idx}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
}

func checkUnexpected(in Intent, allowed []string, params map[string]any) error {
	var extra []string
	for k := range params {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fmt.Errorf("%w: %s does not take %s", ErrUnexpectedParam, in, strings.Join(extra, ", "))
}

func requireString(in Intent, params map[string]any, key string) (string, error) {
	v, err := requireText(in, params, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// requireText returns the parameter exactly as given; blank counts as missing.
func requireText(in Intent, params map[string]any, key string) (string, error) {
	raw, present := params[key]
	v, ok := optionalString(params, key)
	switch {
	case present && raw != nil && !ok:
		return "", fmt.Errorf("%w: %s %q has type %T", ErrInvalidParam, in, key, raw)
	case !ok || strings.TrimSpace(v) == "":
		return "", fmt.Errorf("%w: %s requires %q", ErrMissingParam, in, key)
	}
	return v, nil
}

func optionalString(params map[string]any, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok
}

func optionalInt(in Intent, params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s %q is not an integer: %v", ErrInvalidParam, in, key, v)
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, outOfRange(in, key, v)
		}
		return int(v), nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, outOfRange(in, key, v)
		}
		return v, nil
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, outOfRange(in, key, v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def, nil
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a 32-bit integer: %q", ErrInvalidParam, in, key, v)
		}
		return int(n), nil
	}

	return 0, fmt.Errorf("%w: %s %q has type %T", ErrInvalidParam, in, key, raw)
}

func outOfRange(in Intent, key string, v any) error {
	return fmt.Errorf("%w: %s %q out of range: %v", ErrInvalidParam, in, key, v)
}
