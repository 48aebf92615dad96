package browser

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"voxweb/internal/action"
)

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options
}

func openPlaywright(opts Options) (*playwrightSession, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--start-maximized"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	page, err := b.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	log.Info("Browser started", "driver", DriverPlaywright, "version", b.Version(), "headless", opts.Headless)

	return &playwrightSession{pw: pw, browser: b, page: page, opts: opts}, nil
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{Timeout: millis(s.opts.NavTimeout)}); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (s *playwrightSession) locate(xpath string) playwright.Locator {
	return s.page.Locator("xpath=" + xpath).First()
}

func (s *playwrightSession) Click(ctx context.Context, xpath string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.locate(xpath).Click(playwright.LocatorClickOptions{Timeout: millis(timeout)})
	return playwrightLookupErr(xpath, err)
}

func (s *playwrightSession) Type(ctx context.Context, xpath, text string, submit bool, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loc := s.locate(xpath)
	if err := loc.Fill(text, playwright.LocatorFillOptions{Timeout: millis(timeout)}); err != nil {
		return playwrightLookupErr(xpath, err)
	}
	if submit {
		if err := loc.Press("Enter", playwright.LocatorPressOptions{Timeout: millis(timeout)}); err != nil {
			return playwrightLookupErr(xpath, err)
		}
	}
	return nil
}

func (s *playwrightSession) ScrollBy(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Evaluate("dy => window.scrollBy(0, dy)", dy); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (s *playwrightSession) Capture(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{URL: s.page.URL()}

	title, err := s.page.Title()
	if err != nil {
		return snap, fmt.Errorf("page title: %w", err)
	}
	snap.Title = title

	src, err := s.page.Content()
	if err != nil {
		return snap, fmt.Errorf("page content: %w", err)
	}
	snap.Source = src

	if s.opts.Screenshot != "" {
		if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
			Path: playwright.String(s.opts.Screenshot),
		}); err != nil {
			log.Warn("Failed to save screenshot", "path", s.opts.Screenshot, "err", err)
		} else {
			snap.Screenshot = s.opts.Screenshot
		}
	}

	text, err := ExtractText(src)
	if err != nil {
		return snap, err
	}
	snap.Text = text

	return snap, nil
}

func (s *playwrightSession) Close() error {
	err := s.browser.Close()
	if stopErr := s.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}

func playwrightLookupErr(xpath string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s", action.ErrElementNotFound, xpath)
	}
	return err
}
