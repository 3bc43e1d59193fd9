package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepgramResolveVoice(t *testing.T) {
	client := NewDeepgramTTSClient(DeepgramTTSConfig{APIKey: "k"})

	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"empty uses default", "", DeepgramDefaultVoice},
		{"elevenlabs adam maps to odysseus", "pNInz6obpgDQGcFmaJgB", "aura-2-odysseus-en"},
		{"elevenlabs rachel maps to luna", "21m00Tcm4TlvDq8ikWAM", "aura-2-luna-en"},
		{"aura name passes through", "aura-2-zeus-en", "aura-2-zeus-en"},
		{"unknown falls back to default", "some-random-voice", DeepgramDefaultVoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.resolveVoice(tt.requested); got != tt.want {
				t.Errorf("resolveVoice(%q) = %q, want %q", tt.requested, got, tt.want)
			}
		})
	}
}

func TestDeepgramGenerate(t *testing.T) {
	var gotModel, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModel = r.URL.Query().Get("model")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("dg-audio"))
	}))
	defer server.Close()

	client := NewDeepgramTTSClient(DeepgramTTSConfig{
		APIKey:  "dg-key",
		BaseURL: server.URL,
	})

	result, err := client.Generate(context.Background(), &TTSRequest{
		Text:  "hello",
		Voice: "pNInz6obpgDQGcFmaJgB",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !result.Success {
		t.Error("result.Success = false, want true")
	}
	if string(result.Audio) != "dg-audio" {
		t.Errorf("result.Audio = %q, want %q", result.Audio, "dg-audio")
	}
	if gotModel != "aura-2-odysseus-en" {
		t.Errorf("model param = %q, want %q", gotModel, "aura-2-odysseus-en")
	}
	if gotAuth != "Token dg-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Token dg-key")
	}

	t.Run("empty text fails", func(t *testing.T) {
		result, err := client.Generate(context.Background(), &TTSRequest{Text: "   "})
		if err == nil {
			t.Fatal("Generate() error = nil, want error")
		}
		if result.Success {
			t.Error("result.Success = true, want false")
		}
	})
}
