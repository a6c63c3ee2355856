package transcriber_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/screeningd/internal/transcriber"
)

func TestWhisperClient_Transcribe_PCMPassthrough(t *testing.T) {
	t.Parallel()

	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read form file: %v", err)
		}
		defer file.Close()
		json.NewEncoder(w).Encode(map[string]string{"text": "hello world"})
	}))
	defer server.Close()

	client := transcriber.NewWhisperClient(server.URL, "en", time.Second)
	pcm := make([]byte, 320) // 160 samples of 16-bit silence
	got, err := client.Transcribe(t.Context(), [][]byte{pcm}, "pcm16", 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("want %q, got %q", "hello world", got)
	}
	if gotContentType == "" {
		t.Error("expected a multipart content type to be set")
	}
}

func TestWhisperClient_Transcribe_EmptyChunksReturnsEmptyString(t *testing.T) {
	t.Parallel()

	client := transcriber.NewWhisperClient("http://unused.invalid", "en", time.Second)
	got, err := client.Transcribe(t.Context(), nil, "pcm16", 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("want empty text for no audio, got %q", got)
	}
}

func TestWhisperClient_Transcribe_ServerErrorSurfaces(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := transcriber.NewWhisperClient(server.URL, "en", time.Second)
	if _, err := client.Transcribe(t.Context(), [][]byte{{1, 2, 3, 4}}, "pcm16", 16000); err == nil {
		t.Fatal("expected an error for a server 500")
	}
}
