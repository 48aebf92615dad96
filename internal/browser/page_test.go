package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	src := `<!doctype html>
<html>
<head><title>YouTube</title><style>body { color: red }</style></head>
<body>
  <script>var secret = "do not read";</script>
  <h1>Home</h1>
  <div hidden>invisible</div>
  <span aria-hidden="true">icon</span>
  <p>Recommended
     videos</p>
  <noscript>enable js</noscript>
  <a href="/signin">Sign In</a>
</body>
</html>`

	text, err := ExtractText(src)
	require.NoError(t, err)
	assert.Equal(t, "Home Recommended videos Sign In", text)
}

func TestExtractTextEmpty(t *testing.T) {
	text, err := ExtractText("   ")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestSnapshotContext(t *testing.T) {
	snap := Snapshot{
		URL:   "https://www.youtube.com/",
		Title: "YouTube",
		Text:  strings.Repeat("a", 600),
	}

	ctx := snap.Context()
	assert.True(t, strings.HasPrefix(ctx, "Current Page: YouTube\nURL: https://www.youtube.com/\nVisible Text: "))
	assert.Equal(t, strings.Repeat("a", 500), strings.TrimPrefix(ctx, "Current Page: YouTube\nURL: https://www.youtube.com/\nVisible Text: "))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), Options{Driver: "selenium"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown browser driver "selenium"`)
}

func TestAudioApps(t *testing.T) {
	assert.Equal(t, []string{"chromium", "chrome", "headless_shell"}, Options{}.AudioApps())

	apps := Options{ExecPath: "/opt/brave/brave-browser.exe"}.AudioApps()
	assert.Equal(t, "brave-browser", apps[len(apps)-1])
}
