package tts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteSay(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3-fake-mp3")
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)

	var played string
	r := NewRemote(client, "")
	r.play = func(rc io.ReadCloser) error {
		defer rc.Close()
		b, err := io.ReadAll(rc)
		played = string(b)
		return err
	}

	require.NoError(t, r.Say("Opening YouTube"))
	assert.Equal(t, "ID3-fake-mp3", played)
	assert.Equal(t, "Opening YouTube", body["input"])
	assert.Equal(t, "tts-1", body["model"])
	assert.Equal(t, "alloy", body["voice"])
	assert.Equal(t, "mp3", body["response_format"])
}

func TestRemoteSayEmpty(t *testing.T) {
	r := NewRemote(openai.NewClient(option.WithAPIKey("test")), "nova")
	r.play = func(io.ReadCloser) error {
		t.Fatal("nothing should be played")
		return nil
	}
	assert.NoError(t, r.Say(""))
}

func TestRemoteSayServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	assert.Error(t, NewRemote(client, "").Say("hello"))
}
