package providers

import (
	"context"
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"summary":"short"}`,
			want:    `{"summary":"short"}`,
		},
		{
			name:    "code fenced",
			content: "```json\n{\"summary\":\"short\"}\n```",
			want:    `{"summary":"short"}`,
		},
		{
			name:    "surrounding prose",
			content: "Here is the result:\n{\"summary\":\"short\"}\nHope that helps!",
			want:    `{"summary":"short"}`,
		},
		{
			name:    "array",
			content: `["a","b"]`,
			want:    `["a","b"]`,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
		{
			name:    "no json at all",
			content: "I could not produce a result.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseStructuredJSON() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStructuredJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("parseStructuredJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateStructuredJSON(t *testing.T) {
	schema := json.RawMessage(`{
		"name": "analysis",
		"schema": {
			"type": "object",
			"properties": {
				"summary": {"type": "string"}
			},
			"required": ["summary"]
		}
	}`)

	t.Run("valid document", func(t *testing.T) {
		if err := validateStructuredJSON(schema, json.RawMessage(`{"summary":"ok"}`)); err != nil {
			t.Errorf("validateStructuredJSON() error = %v, want nil", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		if err := validateStructuredJSON(schema, json.RawMessage(`{"other":1}`)); err == nil {
			t.Error("validateStructuredJSON() error = nil, want error")
		}
	})
}

func TestChatStructuredRepairs(t *testing.T) {
	schema := json.RawMessage(`{
		"schema": {
			"type": "object",
			"properties": {"answer": {"type": "string"}},
			"required": ["answer"]
		}
	}`)

	t.Run("valid first try", func(t *testing.T) {
		mock := NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"answer":"yes"}`)

		got, err := ChatStructured(context.Background(), mock, &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "q"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: schema},
		})
		if err != nil {
			t.Fatalf("ChatStructured() error = %v", err)
		}
		if string(got) != `{"answer":"yes"}` {
			t.Errorf("ChatStructured() = %s, want %s", got, `{"answer":"yes"}`)
		}
		if mock.RequestCount() != 1 {
			t.Errorf("request count = %d, want 1", mock.RequestCount())
		}
	})

	t.Run("invalid output exhausts repairs", func(t *testing.T) {
		mock := NewMockClient()
		mock.ResponseJSON = json.RawMessage(`{"wrong":"shape"}`)

		_, err := ChatStructured(context.Background(), mock, &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "q"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: schema},
		})
		if err == nil {
			t.Fatal("ChatStructured() error = nil, want error")
		}
		want := int64(maxStructuredRepairAttempts + 1)
		if mock.RequestCount() != want {
			t.Errorf("request count = %d, want %d", mock.RequestCount(), want)
		}
	})

	t.Run("missing schema rejected", func(t *testing.T) {
		mock := NewMockClient()
		_, err := ChatStructured(context.Background(), mock, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "q"}},
		})
		if err == nil {
			t.Error("ChatStructured() error = nil, want error")
		}
	})
}
