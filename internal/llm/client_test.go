package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tpotops/threatbrief/pkg/models"
)

func geminiReply(text string) genResponse {
	return genResponse{
		Candidates: []struct {
			Content genContent `json:"content"`
		}{
			{Content: genContent{Parts: []genPart{{Text: text}}}},
		},
	}
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) (*Gemini, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGemini(Config{
		BaseURL: srv.URL,
		Model:   "gemini-2.5-pro",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	return client, srv
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(Config{}, nil); err == nil {
		t.Fatal("NewGemini() with empty API key should fail")
	}
}

func TestGeminiSummarize(t *testing.T) {
	var gotPath, gotKey string
	var gotReq genRequest

	client, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)

		reply := geminiReply("```json\n" +
			`{"summary":"SSH brute force wave.","threat_type":"SSH Brute-Force","recommendations":["Rotate credentials","Enable fail2ban"]}` +
			"\n```")
		json.NewEncoder(w).Encode(reply)
	})

	b, err := client.Summarize(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if gotPath != "/v1beta/models/gemini-2.5-pro:generateContent" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Parts[0].Text != "the prompt" {
		t.Errorf("request payload = %+v, want the prompt verbatim", gotReq)
	}
	if b.ThreatType != "SSH Brute-Force" {
		t.Errorf("ThreatType = %q", b.ThreatType)
	}
	if len(b.Recommendations) != 2 {
		t.Errorf("Recommendations = %v", b.Recommendations)
	}
}

func TestGeminiSummarizeServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			},
			want: models.ErrSummarizationUnavailable,
		},
		{
			name: "API error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
			},
			want: models.ErrSummarizationUnavailable,
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates":[]}`)
			},
			want: models.ErrSummarizationUnavailable,
		},
		{
			name: "prose instead of JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(geminiReply("Sorry, I cannot help with that."))
			},
			want: models.ErrSummarizationParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestGemini(t, tt.handler)
			_, err := client.Summarize(context.Background(), "prompt")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Summarize() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGeminiSummarizeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewGemini(Config{BaseURL: url, APIKey: "test-key", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}

	_, err = client.Summarize(context.Background(), "prompt")
	if !errors.Is(err, models.ErrSummarizationUnavailable) {
		t.Fatalf("Summarize() error = %v, want ErrSummarizationUnavailable", err)
	}
}

func TestDisabledSummarizer(t *testing.T) {
	_, err := Disabled{}.Summarize(context.Background(), "prompt")
	if !errors.Is(err, models.ErrSummarizationUnavailable) {
		t.Fatalf("Summarize() error = %v, want ErrSummarizationUnavailable", err)
	}
	if !strings.Contains(err.Error(), "no API key") {
		t.Errorf("error = %v, want mention of missing API key", err)
	}
}
