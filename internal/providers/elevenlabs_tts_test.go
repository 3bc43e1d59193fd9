package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestElevenLabsGenerate(t *testing.T) {
	var gotReq elevenLabsTTSRequest
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if key := r.Header.Get("xi-api-key"); key != "test-key" {
			t.Errorf("xi-api-key = %q, want %q", key, "test-key")
		}
		w.Header().Set("request-id", "req-123")
		w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	client := NewElevenLabsTTSClient(ElevenLabsTTSConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Voice:   "default-voice",
	})

	t.Run("uses client defaults", func(t *testing.T) {
		result, err := client.Generate(context.Background(), &TTSRequest{Text: "hello world"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !result.Success {
			t.Error("result.Success = false, want true")
		}
		if string(result.Audio) != "audio-bytes" {
			t.Errorf("result.Audio = %q, want %q", result.Audio, "audio-bytes")
		}
		if result.RequestID != "req-123" {
			t.Errorf("result.RequestID = %q, want %q", result.RequestID, "req-123")
		}
		if gotPath != "/text-to-speech/default-voice" {
			t.Errorf("path = %q, want %q", gotPath, "/text-to-speech/default-voice")
		}
		if gotReq.VoiceSettings.Stability != 0.5 {
			t.Errorf("stability = %v, want 0.5", gotReq.VoiceSettings.Stability)
		}
		if gotReq.VoiceSettings.SimilarityBoost != 0.75 {
			t.Errorf("similarity_boost = %v, want 0.75", gotReq.VoiceSettings.SimilarityBoost)
		}
	})

	t.Run("per-request voice settings override defaults", func(t *testing.T) {
		_, err := client.Generate(context.Background(), &TTSRequest{
			Text:       "podcast segment",
			Voice:      "pNInz6obpgDQGcFmaJgB",
			Stability:  0.4,
			Similarity: 0.8,
			Style:      0.6,
			Speed:      1.1,
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if gotPath != "/text-to-speech/pNInz6obpgDQGcFmaJgB" {
			t.Errorf("path = %q, want voice-specific path", gotPath)
		}
		if gotReq.VoiceSettings.Stability != 0.4 {
			t.Errorf("stability = %v, want 0.4", gotReq.VoiceSettings.Stability)
		}
		if gotReq.VoiceSettings.SimilarityBoost != 0.8 {
			t.Errorf("similarity_boost = %v, want 0.8", gotReq.VoiceSettings.SimilarityBoost)
		}
		if gotReq.VoiceSettings.Style != 0.6 {
			t.Errorf("style = %v, want 0.6", gotReq.VoiceSettings.Style)
		}
		if gotReq.VoiceSettings.Speed != 1.1 {
			t.Errorf("speed = %v, want 1.1", gotReq.VoiceSettings.Speed)
		}
	})

	t.Run("missing voice fails", func(t *testing.T) {
		bare := NewElevenLabsTTSClient(ElevenLabsTTSConfig{APIKey: "k", BaseURL: server.URL})
		result, err := bare.Generate(context.Background(), &TTSRequest{Text: "hi"})
		if err == nil {
			t.Fatal("Generate() error = nil, want error")
		}
		if result.Success {
			t.Error("result.Success = true, want false")
		}
	})
}

func TestElevenLabsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":{"status":"rate_limited","message":"too many requests"}}`))
	}))
	defer server.Close()

	client := NewElevenLabsTTSClient(ElevenLabsTTSConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Voice:   "v",
	})

	_, err := client.Generate(context.Background(), &TTSRequest{Text: "hello"})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.RetryAfter.Seconds() != 7 {
		t.Errorf("RetryAfter = %v, want 7s", rateErr.RetryAfter)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		format         string
		wantContainer  string
		wantSampleRate int
	}{
		{"mp3_44100_128", "mp3", 44100},
		{"pcm_16000", "wav", 16000},
		{"", "mp3", 0},
		{"opus_48000", "opus", 48000},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			container, rate := parseOutputFormat(tt.format)
			if container != tt.wantContainer {
				t.Errorf("container = %q, want %q", container, tt.wantContainer)
			}
			if rate != tt.wantSampleRate {
				t.Errorf("sampleRate = %d, want %d", rate, tt.wantSampleRate)
			}
		})
	}
}
