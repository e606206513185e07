package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voxchat/models"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, handler http.HandlerFunc) Options {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return Options{BaseURL: srv.URL + "/v1", Token: "test-token", HTTPClient: srv.Client()}
}

func TestTranscribe(t *testing.T) {
	var gotModel, gotLang, gotName, gotAuth string
	var gotFile []byte
	opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
			return
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("no file field: %v", err)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		gotFile, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" hola [_BEG_]"}`))
	})
	tr := NewTranscriber(testLogger, opts, "")
	pcm := models.NewAudioBuffer(make([]byte, 4000), models.PCMMime(16000))
	text, err := tr.Transcribe(context.Background(), pcm, "es")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if text != "hola" {
		t.Errorf("expected %q, got %q", "hola", text)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "whisper-1" || gotLang != "es" {
		t.Errorf("unexpected fields model=%q language=%q", gotModel, gotLang)
	}
	if gotName != "audio_input.wav" {
		t.Errorf("unexpected file name %q", gotName)
	}
	// pcm gets a 44 byte wav header
	if len(gotFile) != 4044 || string(gotFile[:4]) != "RIFF" {
		t.Errorf("unexpected upload: %d bytes", len(gotFile))
	}
}

func TestTranscribeFailures(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "api error", status: http.StatusUnauthorized,
			body:       `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			wantStatus: 401, wantMsg: "Incorrect API key provided"},
		{name: "plain error", status: http.StatusBadGateway, body: "upstream down",
			wantStatus: 502, wantMsg: "upstream down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			tr := NewTranscriber(testLogger, opts, "")
			_, err := tr.Transcribe(context.Background(), models.NewAudioBuffer([]byte{1, 2}, models.MimeWAV), "es")
			if !errors.Is(err, models.ErrTranscriptionFailed) {
				t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
			}
			var se *models.StageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StageError, got %T", err)
			}
			if se.StatusCode != tc.wantStatus || !strings.Contains(se.Message, tc.wantMsg) {
				t.Errorf("unexpected cause: status=%d msg=%q", se.StatusCode, se.Message)
			}
		})
	}
}

func TestTranscribeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	tr := NewTranscriber(testLogger, Options{BaseURL: url, Token: "x"}, "")
	_, err := tr.Transcribe(context.Background(), models.NewAudioBuffer([]byte{1}, models.MimeWAV), "es")
	if !errors.Is(err, models.ErrTranscriptionFailed) {
		t.Errorf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	called := false
	opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	tr := NewTranscriber(testLogger, opts, "")
	_, err := tr.Transcribe(context.Background(), models.AudioBuffer{}, "es")
	if !errors.Is(err, models.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
	if called {
		t.Errorf("empty audio must not reach the endpoint")
	}
}

type chatReq struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestComplete(t *testing.T) {
	cases := []struct {
		name      string
		sysPrompt string
		history   []models.Entry
		wantRoles []string
	}{
		{name: "single turn", wantRoles: []string{"user"}},
		{name: "with system prompt", sysPrompt: "be brief", wantRoles: []string{"system", "user"}},
		{name: "with history",
			history:   []models.Entry{{Role: models.RoleUser, Content: "hola"}, {Role: models.RoleAssistant, Content: "hi"}},
			wantRoles: []string{"user", "assistant", "user"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got chatReq
			opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"¡Hola! ¿En qué puedo ayudarte?"},"finish_reason":"stop"}]}`))
			})
			chat := NewChat(testLogger, opts, "", 0, tc.sysPrompt)
			text, err := chat.Complete(context.Background(), "¿qué tal?", tc.history)
			if err != nil {
				t.Fatalf("Complete() failed: %v", err)
			}
			if text != "¡Hola! ¿En qué puedo ayudarte?" {
				t.Errorf("unexpected reply %q", text)
			}
			if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 300 {
				t.Errorf("unexpected model/max_tokens: %q %d", got.Model, got.MaxTokens)
			}
			if len(got.Messages) != len(tc.wantRoles) {
				t.Fatalf("expected %d messages, got %d", len(tc.wantRoles), len(got.Messages))
			}
			for i, role := range tc.wantRoles {
				if got.Messages[i].Role != role {
					t.Errorf("message %d: expected role %q, got %q", i, role, got.Messages[i].Role)
				}
			}
			last := got.Messages[len(got.Messages)-1]
			if last.Content != "¿qué tal?" {
				t.Errorf("last message should be the user message, got %q", last.Content)
			}
		})
	}
}

func TestCompleteFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: 500, body: `{"error":{"message":"boom"}}`},
		{name: "no choices", status: 200, body: `{"id":"1","choices":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := NewChat(testLogger, opts, "", 0, "").Complete(context.Background(), "hola", nil)
			if !errors.Is(err, models.ErrCompletionFailed) {
				t.Errorf("expected ErrCompletionFailed, got %v", err)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	var got map[string]any
	wav := []byte("RIFF....WAVEfmt ")
	opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	})
	synth, err := NewSynthesizer(testLogger, opts, SynthOptions{Provider: "openai"})
	if err != nil {
		t.Fatalf("NewSynthesizer() failed: %v", err)
	}
	buf, err := synth.Synthesize(context.Background(), "**¡Hola!** ¿En qué puedo ayudarte?", "onyx")
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	if buf.MIME() != models.MimeWAV || string(buf.Bytes()) != string(wav) {
		t.Errorf("unexpected buffer %q %q", buf.MIME(), buf.Bytes())
	}
	if got["model"] != "tts-1" || got["voice"] != "onyx" {
		t.Errorf("unexpected request %v", got)
	}
	// the buffer is labelled wav, so wav is what gets asked for
	if got["response_format"] != "wav" {
		t.Errorf("expected wav response format, got %v", got["response_format"])
	}
	if _, ok := got["speed"]; ok {
		t.Errorf("default speed must not be sent: %v", got)
	}
	if got["input"] != "¡Hola! ¿En qué puedo ayudarte?" {
		t.Errorf("markdown not cleaned: %v", got["input"])
	}
}

func TestSynthesizeFailures(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		status int
		body   string
	}{
		{name: "server error", text: "hola", status: 500, body: `{"error":{"message":"boom"}}`},
		{name: "empty body", text: "hola", status: 200, body: ""},
		{name: "nothing to say", text: "***", status: 200, body: "RIFF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := NewSpeech(testLogger, opts, "", 1).Synthesize(context.Background(), tc.text, "onyx")
			if !errors.Is(err, models.ErrSynthesisFailed) {
				t.Errorf("expected ErrSynthesisFailed, got %v", err)
			}
		})
	}
}

func TestNewSynthesizerUnknown(t *testing.T) {
	if _, err := NewSynthesizer(testLogger, Options{}, SynthOptions{Provider: "espeak"}); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}
