package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"

	"voxweb/internal/action"
)

const testXPath = "//*[@name='q']"

func TestLookupErr(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	other := errors.New("cdp: node detached")

	tests := []struct {
		name     string
		ctx      context.Context
		err      error
		notFound bool
		want     error
	}{
		{"no error", live, nil, false, nil},
		{"deadline with live caller", live, context.DeadlineExceeded, true, nil},
		{"wrapped deadline", live, fmt.Errorf("wait: %w", context.DeadlineExceeded), true, nil},
		{"deadline after caller cancelled", cancelled, context.DeadlineExceeded, false, context.DeadlineExceeded},
		{"caller cancelled", cancelled, context.Canceled, false, context.Canceled},
		{"other error", live, other, false, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lookupErr(tt.ctx, testXPath, tt.err)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			if tt.notFound {
				assert.ErrorIs(t, err, action.ErrElementNotFound)
				assert.Contains(t, err.Error(), testXPath)
				return
			}
			assert.NotErrorIs(t, err, action.ErrElementNotFound)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPlaywrightLookupErr(t *testing.T) {
	assert.NoError(t, playwrightLookupErr(testXPath, nil))

	err := playwrightLookupErr(testXPath, fmt.Errorf("locator.click: %w", playwright.ErrTimeout))
	assert.ErrorIs(t, err, action.ErrElementNotFound)
	assert.Contains(t, err.Error(), testXPath)

	other := errors.New("target closed")
	err = playwrightLookupErr(testXPath, other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, action.ErrElementNotFound)
}
