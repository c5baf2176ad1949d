package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testRequest() *MessageRequest {
	return &MessageRequest{
		CompanyID: "1",
		UserID:    "42",
		ChatID:    "chat-7",
		Body:      "voice message",
		FromMe:    true,
		Attachments: []Attachment{
			{Name: "1712000000000-note.m4a", MIME: "audio/mp4", Data: []byte("audio-bytes")},
		},
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	if err == nil {
		t.Error("Expected error for empty base URL")
	}

	client, err := NewClient(Config{BaseURL: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("Expected valid client, got error: %v", err)
	}

	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}
	if client.config.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", client.config.MaxRetries)
	}
	if client.config.MaxConcurrent != 10 {
		t.Errorf("Expected default max concurrent 10, got %d", client.config.MaxConcurrent)
	}
}

func TestSendSuccess(t *testing.T) {
	var gotPath string
	var gotBody, gotFromMe, gotFileName string
	var gotFileData []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		gotBody = r.FormValue("body")
		gotFromMe = r.FormValue("from_me")

		file, header, err := r.FormFile("medias")
		if err != nil {
			t.Errorf("Expected medias file part: %v", err)
		} else {
			gotFileName = header.Filename
			gotFileData, _ = io.ReadAll(file)
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(MessageResponse{
			MessageID: "msg-1",
			ChatID:    "chat-7",
			CreatedAt: time.Now(),
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Send(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected successful upload, got error: %v", err)
	}

	if resp.MessageID != "msg-1" {
		t.Errorf("Expected message ID msg-1, got %s", resp.MessageID)
	}
	if gotPath != "/companies/1/chats/chat-7/messages" {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
	if gotBody != "voice message" {
		t.Errorf("Expected body field, got %q", gotBody)
	}
	if gotFromMe != "true" {
		t.Errorf("Expected from_me true, got %q", gotFromMe)
	}
	if gotFileName != "1712000000000-note.m4a" {
		t.Errorf("Unexpected attachment name: %s", gotFileName)
	}
	if string(gotFileData) != "audio-bytes" {
		t.Errorf("Attachment bytes not preserved, got %q", string(gotFileData))
	}

	stats := client.GetStats()
	if stats.TotalUploads != 1 || stats.SuccessUploads != 1 {
		t.Errorf("Expected 1 total / 1 success, got %d / %d", stats.TotalUploads, stats.SuccessUploads)
	}
}

func TestSendClientErrorNotRetried(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.Send(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "HTTP error 400") {
		t.Errorf("Expected HTTP error 400 in message, got: %v", err)
	}

	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected 1 request for non-retryable error, got %d", n)
	}

	stats := client.GetStats()
	if stats.FailedUploads != 1 {
		t.Errorf("Expected 1 failed upload, got %d", stats.FailedUploads)
	}
	if stats.TotalRetries != 0 {
		t.Errorf("Expected 0 retries, got %d", stats.TotalRetries)
	}
}

func TestSendServerErrorRetried(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(MessageResponse{MessageID: "msg-2", ChatID: "chat-7"})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, MaxRetries: 1})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Send(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected success after retry, got error: %v", err)
	}
	if resp.MessageID != "msg-2" {
		t.Errorf("Expected message ID msg-2, got %s", resp.MessageID)
	}

	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("Expected 2 requests, got %d", n)
	}

	stats := client.GetStats()
	if stats.TotalRetries != 1 {
		t.Errorf("Expected 1 retry, got %d", stats.TotalRetries)
	}
}

func TestSendMissingChatID(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	request := testRequest()
	request.ChatID = ""

	if _, err := client.Send(context.Background(), request); err == nil {
		t.Error("Expected error for missing chat ID")
	}
}

func TestSendContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "temporary failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, MaxRetries: 5})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = client.Send(ctx, testRequest())
	if err == nil {
		t.Fatal("Expected error after context timeout")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestIsRetryableError(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"server error", errString("HTTP error 503: unavailable"), true},
		{"rate limited", errString("HTTP error 429: slow down"), true},
		{"connection refused", errString("dial tcp: connection refused"), true},
		{"timeout", errString("request timeout exceeded"), true},
		{"bad request", errString("HTTP error 400: bad request"), false},
		{"not found", errString("HTTP error 404: not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.isRetryableError(tt.err); got != tt.retryable {
				t.Errorf("Expected retryable=%v for %q, got %v", tt.retryable, tt.err, got)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
