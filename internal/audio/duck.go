package audio

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxVolume = 150
	fadeStep  = 10 * time.Millisecond
)

var (
	sinkInputRe = regexp.MustCompile(`^Sink Input #(\d+)$`)
	volumeRe    = regexp.MustCompile(`(\d+)\s*%`)
	propertyRe  = regexp.MustCompile(`^([a-z0-9_.]+) = "(.*)"$`)
)

// sinkInput is one PulseAudio playback stream.
type sinkInput struct {
	ID     int
	Volume int // percent of the first channel
	App    string
	Binary string
}

// Ducker turns the browser's audio down while the microphone is open, so a
// playing video does not drown out the command. Other applications are
// left alone.
type Ducker struct {
	browsers []string // lower-cased application names or binaries
	floor    int

	mu     sync.Mutex
	ducked map[int]int // sink input id -> volume before ducking

	list func(ctx context.Context) ([]sinkInput, error)
	set  func(ctx context.Context, id int, percent int) error
}

// NewDucker matches browsers against application.name and
// application.process.binary, case-insensitively and by substring.
// Ducked streams never go below floor percent.
func NewDucker(browsers []string, floor int) *Ducker {
	names := make([]string, 0, len(browsers))
	for _, b := range browsers {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			names = append(names, b)
		}
	}

	return &Ducker{
		browsers: names,
		floor:    min(max(floor, 0), maxVolume),
		list:     pactlSinkInputs,
		set:      pactlSetVolume,
	}
}

func (d *Ducker) isBrowser(s sinkInput) bool {
	app, bin := strings.ToLower(s.App), strings.ToLower(s.Binary)
	for _, name := range d.browsers {
		if strings.Contains(app, name) || strings.Contains(bin, name) {
			return true
		}
	}
	return false
}

// Duck scales every browser stream by factor over the fade duration.
// Calling it again before Restore does nothing.
func (d *Ducker) Duck(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked != nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	d.ducked = make(map[int]int)
	var ramps []ramp
	for _, s := range inputs {
		if !d.isBrowser(s) {
			continue
		}
		to := int(math.Round(float64(s.Volume) * factor))
		to = min(max(to, d.floor), maxVolume)

		d.ducked[s.ID] = s.Volume
		ramps = append(ramps, ramp{id: s.ID, from: s.Volume, to: to})
	}

	return d.apply(ctx, ramps, fade)
}

// Restore brings ducked streams that still exist back to their
// previous volume.
func (d *Ducker) Restore(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked == nil {
		return nil
	}
	saved := d.ducked
	d.ducked = nil

	inputs, err := d.list(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	var ramps []ramp
	for _, s := range inputs {
		if prev, ok := saved[s.ID]; ok {
			ramps = append(ramps, ramp{id: s.ID, from: s.Volume, to: prev})
		}
	}

	return d.apply(ctx, ramps, fade)
}

type ramp struct {
	id, from, to int
}

func (r ramp) at(frac float64) int {
	return r.from + int(math.Round(float64(r.to-r.from)*frac))
}

// apply moves every ramp to its target in fadeStep increments.
func (d *Ducker) apply(ctx context.Context, ramps []ramp, fade time.Duration) error {
	if len(ramps) == 0 {
		return nil
	}

	steps := max(int(fade/fadeStep), 1)
	var tick <-chan time.Time
	if steps > 1 {
		t := time.NewTicker(fade / time.Duration(steps))
		defer t.Stop()
		tick = t.C
	}

	for i := 1; i <= steps; i++ {
		if i > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		frac := float64(i) / float64(steps)
		for _, r := range ramps {
			if err := d.set(ctx, r.id, r.at(frac)); err != nil {
				return fmt.Errorf("set volume of sink input %d: %w", r.id, err)
			}
		}
	}

	return nil
}

func pactlSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

// parseSinkInputs reads `pactl list sink-inputs` output. Blocks without a
// volume are skipped.
func parseSinkInputs(text string) []sinkInput {
	var (
		res []sinkInput
		cur *sinkInput
	)
	flush := func() {
		if cur != nil && cur.Volume > 0 {
			res = append(res, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if strings.HasPrefix(line, "Sink Input #") {
			flush()
			if m := sinkInputRe.FindStringSubmatch(line); m != nil {
				id, _ := strconv.Atoi(m[1])
				cur = &sinkInput{ID: id}
			}
			continue
		}
		if cur == nil {
			continue
		}

		if strings.HasPrefix(line, "Volume:") && cur.Volume == 0 {
			if m := volumeRe.FindStringSubmatch(line); m != nil {
				cur.Volume, _ = strconv.Atoi(m[1])
			}
			continue
		}

		if m := propertyRe.FindStringSubmatch(line); m != nil {
			switch m[1] {
			case "application.name":
				cur.App = m[2]
			case "application.process.binary":
				cur.Binary = m[2]
			}
		}
	}
	flush()

	return res
}

func pactlSetVolume(ctx context.Context, id int, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), strconv.Itoa(percent)+"%").Run()
}
