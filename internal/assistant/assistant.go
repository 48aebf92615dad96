// Package assistant runs the listen, interpret and act cycle.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"voxweb/internal/action"
	"voxweb/internal/browser"
	"voxweb/internal/bus"
	"voxweb/internal/nlu"
)

var (
	ErrAborted          = errors.New("no additional information provided")
	ErrNoIntent         = errors.New("no intent in interpretation")
	ErrTooManyFollowUps = errors.New("too many follow-up questions")
)

const (
	msgAborted      = "No additional information provided. Aborting command."
	msgNoIntent     = "Sorry, I couldn't determine the required action."
	msgTooMany      = "I still don't have enough information. Aborting command."
	msgUnknownFmt   = "I don't know how to perform the action %s."
	msgActionErrFmt = "There was an error executing the %s action."
)

const (
	DefaultMaxFollowUps  = 3
	DefaultPacing        = 1500 * time.Millisecond
	DefaultListenBackoff = time.Second

	inboxSize = 8
)

type Listener interface {
	Listen(ctx context.Context) (string, bool)
}

type Speaker interface {
	Speak(text string) bool
	Wait()
}

type Interpreter interface {
	Interpret(ctx context.Context, req nlu.Request) nlu.Result
}

type Browser interface {
	action.Driver
	Capture(ctx context.Context) (browser.Snapshot, error)
}

type Reporter interface {
	Report(kind, content string)
}

type Config struct {
	MaxFollowUps int
	Pacing       time.Duration
	Timeouts     action.Timeouts

	// ListenBackoff is the pause after a listen that heard nothing.
	ListenBackoff time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxFollowUps <= 0 {
		c.MaxFollowUps = DefaultMaxFollowUps
	}
	if c.Pacing < 0 {
		c.Pacing = 0
	}
	if c.ListenBackoff <= 0 {
		c.ListenBackoff = DefaultListenBackoff
	}
	if c.Timeouts == (action.Timeouts{}) {
		c.Timeouts = action.DefaultTimeouts()
	}
}

type Assistant struct {
	ears     Listener
	voice    Speaker
	nlu      Interpreter
	page     Browser
	dispatch *action.Dispatcher
	cfg      Config

	// Reporter receives every command, interpretation and outcome when set.
	Reporter Reporter

	inbox chan string
}

func New(ears Listener, voice Speaker, in Interpreter, page Browser, cfg Config) *Assistant {
	cfg.setDefaults()
	return &Assistant{
		ears:     ears,
		voice:    voice,
		nlu:      in,
		page:     page,
		dispatch: action.NewDispatcher(page, cfg.Timeouts),
		cfg:      cfg,
		inbox:    make(chan string, inboxSize),
	}
}

// Submit queues a typed command for the main loop. It reports false when
// the inbox is full.
func (a *Assistant) Submit(command string) bool {
	select {
	case a.inbox <- command:
		return true
	default:
		log.Warn("Inbox full, dropping command", "command", command)
		return false
	}
}

// Run alternates between injected commands and the microphone until ctx is
// cancelled. Failed cycles are logged and never stop the loop.
func (a *Assistant) Run(ctx context.Context) error {
	log.Info("Assistant started")

	for {
		if ctx.Err() != nil {
			log.Info("Assistant stopped")
			return nil
		}

		var command string
		select {
		case <-ctx.Done():
			continue
		case command = <-a.inbox:
		default:
			// don't record our own voice
			a.voice.Wait()

			text, ok := a.ears.Listen(ctx)
			if !ok {
				command = a.backoff(ctx)
				break
			}
			command = text
		}

		if command == "" {
			continue
		}

		if err := a.Execute(ctx, command); err != nil {
			log.Warn("Command failed", "command", command, "err", err)
		}
	}
}

// Execute runs one command to completion, asking follow-up questions while
// the interpreter reports missing information.
func (a *Assistant) Execute(ctx context.Context, command string) error {
	log.Info("Executing command", "command", command)
	a.report(bus.KindCommand, command)

	for round := 0; ; round++ {
		req := a.capture(ctx, command)

		if err := sleep(ctx, a.cfg.Pacing); err != nil {
			return err
		}

		res := a.nlu.Interpret(ctx, req)
		log.Info("Interpreted", "result", res.String())
		a.report(bus.KindInterpretation, res.String())

		if !res.MissingInfo {
			return a.act(ctx, res)
		}

		if round >= a.cfg.MaxFollowUps {
			a.say(msgTooMany)
			return ErrTooManyFollowUps
		}

		a.say(res.Question)
		a.voice.Wait()

		answer, ok := a.ears.Listen(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.say(msgAborted)
			return ErrAborted
		}

		command = command + " " + answer
		log.Info("Extended command", "command", command, "round", round+1)
	}
}

// backoff pauses after a failed listen. A command submitted meanwhile ends
// the pause and is returned.
func (a *Assistant) backoff(ctx context.Context) string {
	t := time.NewTimer(a.cfg.ListenBackoff)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case command := <-a.inbox:
		return command
	case <-t.C:
	}
	return ""
}

func (a *Assistant) capture(ctx context.Context, command string) nlu.Request {
	req := nlu.Request{Command: command}

	snap, err := a.page.Capture(ctx)
	if err != nil {
		log.Warn("Failed to capture page", "err", err)
		return req
	}

	req.Context = snap.Context()
	req.PageSource = snap.Source
	req.Text = snap.Text
	return req
}

func (a *Assistant) act(ctx context.Context, res nlu.Result) error {
	if res.Intent == "" {
		a.say(msgNoIntent)
		a.report(bus.KindError, ErrNoIntent.Error())
		return ErrNoIntent
	}

	act, err := action.Parse(res.Intent, res.Parameters)
	if errors.Is(err, action.ErrUnknownIntent) {
		log.Warn("Unknown intent", "intent", res.Intent)
		a.say(fmt.Sprintf(msgUnknownFmt, res.Intent))
		a.report(bus.KindError, err.Error())
		return err
	}
	if err == nil {
		err = a.dispatch.Dispatch(ctx, act)
	}
	if err != nil {
		log.Error("Failed to perform action", "intent", res.Intent, "err", err)
		a.say(fmt.Sprintf(msgActionErrFmt, res.Intent))
		a.report(bus.KindError, err.Error())
		return fmt.Errorf("%s: %w", res.Intent, err)
	}

	log.Info("Action performed", "intent", res.Intent, "action", fmt.Sprintf("%+v", act))
	a.report(bus.KindAction, fmt.Sprintf("%s %+v", act.Intent(), act))
	return nil
}

func (a *Assistant) say(text string) {
	a.voice.Speak(text)
}

func (a *Assistant) report(kind, content string) {
	if a.Reporter != nil {
		a.Reporter.Report(kind, content)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
