package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"voxweb/internal/action"
)

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Session is the single browser instance owned by the process.
type Session interface {
	action.Driver
	Capture(ctx context.Context) (Snapshot, error)
	Close() error
}

type Options struct {
	Driver     string
	Headless   bool
	ExecPath   string // chromedp only; empty uses the system browser
	Screenshot string // overwritten on every capture; empty disables
	Width      int
	Height     int
	NavTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Driver == "" {
		o.Driver = DriverChromedp
	}
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 60 * time.Second
	}
}

// AudioApps names the PulseAudio clients the launched browser shows up as.
// Both drivers run a Chromium build; a custom ExecPath adds its binary name.
func (o Options) AudioApps() []string {
	apps := []string{"chromium", "chrome", "headless_shell"}
	if o.ExecPath != "" {
		bin := strings.TrimSuffix(filepath.Base(o.ExecPath), filepath.Ext(o.ExecPath))
		apps = append(apps, bin)
	}
	return apps
}

// Open launches the browser selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Session, error) {
	opts.setDefaults()

	switch opts.Driver {
	case DriverChromedp:
		return openChromedp(ctx, opts)
	case DriverPlaywright:
		return openPlaywright(opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}
