package action

import (
	"context"
	"fmt"
	log "log/slog"
	"time"
)

// Driver is the browser surface the handlers need. Element lookups take
// XPath expressions and must return an error wrapping ErrElementNotFound when
// nothing matches within timeout.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, xpath string, timeout time.Duration) error
	Type(ctx context.Context, xpath, text string, submit bool, timeout time.Duration) error
	ScrollBy(ctx context.Context, dy int) error
}

type Timeouts struct {
	OpenSettle time.Duration
	Click      time.Duration
	FillForm   time.Duration
	Search     time.Duration
	PlayVideo  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		OpenSettle: 3 * time.Second,
		Click:      10 * time.Second,
		FillForm:   10 * time.Second,
		Search:     15 * time.Second,
		PlayVideo:  15 * time.Second,
	}
}

const (
	searchBoxXPath  = `//*[@name='search_query']`
	videoTitleXPath = `(//ytd-video-renderer//a[@id='video-title'])[%d]`
)

type Dispatcher struct {
	drv Driver
	tm  Timeouts
}

func NewDispatcher(drv Driver, tm Timeouts) *Dispatcher {
	return &Dispatcher{drv: drv, tm: tm}
}

func (d *Dispatcher) Dispatch(ctx context.Context, a Action) error {
	switch a := a.(type) {
	case Open:
		return d.open(ctx, a)
	case Click:
		return d.click(ctx, a)
	case Scroll:
		return d.scroll(ctx, a)
	case FillForm:
		return d.fillForm(ctx, a)
	case Search:
		return d.search(ctx, a)
	case PlayVideo:
		return d.playVideo(ctx, a)
	}

	return fmt.Errorf("%w: %T", ErrUnknownIntent, a)
}

func (d *Dispatcher) open(ctx context.Context, a Open) error {
	if a.URL == "" {
		return fmt.Errorf("%w: open requires %q", ErrMissingParam, "url")
	}

	if err := d.drv.Navigate(ctx, a.URL); err != nil {
		return fmt.Errorf("open %s: %w", a.URL, err)
	}

	log.Info("Opened URL", "url", a.URL)

	return sleep(ctx, d.tm.OpenSettle)
}

func (d *Dispatcher) click(ctx context.Context, a Click) error {
	if a.ElementText == "" {
		return fmt.Errorf("%w: click requires %q", ErrMissingParam, "element_text")
	}

	xp := fmt.Sprintf("//*[contains(text(), %s)]", XPathLiteral(a.ElementText))
	if err := d.drv.Click(ctx, xp, d.tm.Click); err != nil {
		return fmt.Errorf("click %q: %w", a.ElementText, err)
	}

	log.Info("Clicked element", "text", a.ElementText)

	return nil
}

func (d *Dispatcher) scroll(ctx context.Context, a Scroll) error {
	dy := a.Distance
	if a.Direction == "up" {
		dy = -dy
	}

	if err := d.drv.ScrollBy(ctx, dy); err != nil {
		return fmt.Errorf("scroll %s: %w", a.Direction, err)
	}

	log.Info("Scrolled", "direction", a.Direction, "distance", a.Distance)

	return nil
}

func (d *Dispatcher) fillForm(ctx context.Context, a FillForm) error {
	if a.Field == "" || a.Value == "" {
		return fmt.Errorf("%w: fill_form requires %q and %q", ErrMissingParam, "field", "value")
	}

	xp := fmt.Sprintf("//*[@name=%s]", XPathLiteral(a.Field))
	if err := d.drv.Type(ctx, xp, a.Value, false, d.tm.FillForm); err != nil {
		return fmt.Errorf("fill %q: %w", a.Field, err)
	}

	log.Info("Filled form field", "field", a.Field)

	return nil
}

func (d *Dispatcher) search(ctx context.Context, a Search) error {
	if a.Query == "" {
		return fmt.Errorf("%w: search requires %q", ErrMissingParam, "query")
	}

	if err := d.drv.Type(ctx, searchBoxXPath, a.Query, true, d.tm.Search); err != nil {
		return fmt.Errorf("search %q: %w", a.Query, err)
	}

	log.Info("Searched", "query", a.Query)

	return nil
}

func (d *Dispatcher) playVideo(ctx context.Context, a PlayVideo) error {
	idx := a.Index
	if idx < 1 {
		idx = defaultVideoIndex
	}

	xp := fmt.Sprintf(videoTitleXPath, idx)
	if err := d.drv.Click(ctx, xp, d.tm.PlayVideo); err != nil {
		return fmt.Errorf("play video %d: %w", idx, err)
	}

	log.Info("Played video", "index", idx)

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
