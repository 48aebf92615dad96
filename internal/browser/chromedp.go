package browser

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"voxweb/internal/action"
)

type chromedpSession struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	opts        Options
}

func openChromedp(ctx context.Context, opts Options) (*chromedpSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// detached: torn down only by Close
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...), "driver", DriverChromedp)
		}),
	)

	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Info("Browser started", "driver", DriverChromedp, "headless", opts.Headless)

	return &chromedpSession{
		ctx:         tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		opts:        opts,
	}, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.opts.NavTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, xpath string, timeout time.Duration) error {
	err := s.run(ctx, timeout,
		chromedp.WaitReady(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	)
	return lookupErr(ctx, xpath, err)
}

func (s *chromedpSession) Type(ctx context.Context, xpath, text string, submit bool, timeout time.Duration) error {
	tasks := chromedp.Tasks{
		chromedp.WaitReady(xpath, chromedp.BySearch),
		chromedp.Clear(xpath, chromedp.BySearch),
		chromedp.SendKeys(xpath, text, chromedp.BySearch),
	}
	if submit {
		tasks = append(tasks, chromedp.SendKeys(xpath, kb.Enter, chromedp.BySearch))
	}

	return lookupErr(ctx, xpath, s.run(ctx, timeout, tasks))
}

func (s *chromedpSession) ScrollBy(ctx context.Context, dy int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d);", dy)
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (s *chromedpSession) Capture(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var shot []byte

	tasks := chromedp.Tasks{
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.OuterHTML("html", &snap.Source, chromedp.ByQuery),
	}
	if s.opts.Screenshot != "" {
		tasks = append(tasks, chromedp.CaptureScreenshot(&shot))
	}

	if err := s.run(ctx, 15*time.Second, tasks); err != nil {
		return snap, fmt.Errorf("capture page: %w", err)
	}

	if len(shot) > 0 {
		if err := os.WriteFile(s.opts.Screenshot, shot, 0o644); err != nil {
			log.Warn("Failed to save screenshot", "path", s.opts.Screenshot, "err", err)
		} else {
			snap.Screenshot = s.opts.Screenshot
		}
	}

	text, err := ExtractText(snap.Source)
	if err != nil {
		return snap, err
	}
	snap.Text = text

	return snap, nil
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	return err
}

// lookupErr reports a lookup that ran out of time as ErrElementNotFound.
func lookupErr(ctx context.Context, xpath string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", action.ErrElementNotFound, xpath)
	}
	return err
}
