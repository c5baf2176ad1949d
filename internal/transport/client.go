package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Client provides HTTP client functionality for message upload requests
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Rate limiting semaphore

	// Statistics
	totalUploads    uint64
	successUploads  uint64
	failedUploads   uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains upload client configuration
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Attachment is a media file sent alongside a chat message.
type Attachment struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"-"` // Not included in JSON, sent as file part
}

// MessageRequest represents an outgoing chat message upload
type MessageRequest struct {
	CompanyID   string       `json:"company_id"`
	UserID      string       `json:"user_id"`
	ChatID      string       `json:"chat_id"`
	Body        string       `json:"body,omitempty"`
	FromMe      bool         `json:"from_me"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Request metadata
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageResponse represents the API response for a stored message
type MessageResponse struct {
	MessageID string         `json:"message_id"`
	ChatID    string         `json:"chat_id"`
	Files     []StoredFile   `json:"files,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// StoredFile describes a stored attachment as reported by the API
type StoredFile struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	MIME     string  `json:"mime"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration,omitempty"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalUploads    uint64        `json:"total_uploads"`
	SuccessUploads  uint64        `json:"success_uploads"`
	FailedUploads   uint64        `json:"failed_uploads"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveUploads   int           `json:"active_uploads"`
}

// NewClient creates a new message upload client
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Create semaphore for rate limiting
	semaphore := make(chan struct{}, config.MaxConcurrent)

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  semaphore,
	}, nil
}

// Send uploads a chat message with its attachments
func (c *Client) Send(ctx context.Context, request *MessageRequest) (*MessageResponse, error) {
	if request.ChatID == "" {
		return nil, fmt.Errorf("chat ID cannot be empty")
	}

	// Acquire semaphore for rate limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalUploads()

	var lastErr error

	// Retry loop with exponential backoff
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		response, err := c.doRequest(ctx, request)
		if err == nil {
			c.incrementSuccessUploads()
			c.updateAvgResponseTime(time.Since(startTime))
			return response, nil
		}

		lastErr = err

		// Check if error is retryable
		if !c.isRetryableError(err) {
			break
		}
	}

	c.incrementFailedUploads()
	return nil, fmt.Errorf("message upload failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doRequest performs a single HTTP request to the messaging API
func (c *Client) doRequest(ctx context.Context, request *MessageRequest) (*MessageResponse, error) {
	body, contentType, err := c.createMultipartRequest(request)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	url := fmt.Sprintf("%s/companies/%s/chats/%s/messages",
		c.config.BaseURL, request.CompanyID, request.ChatID)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var messageResp MessageResponse
	if err := json.Unmarshal(respBody, &messageResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return &messageResp, nil
}

// createMultipartRequest creates a multipart/form-data request body
func (c *Client) createMultipartRequest(request *MessageRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// Add attachment files
	for i, attachment := range request.Attachments {
		if len(attachment.Data) == 0 {
			continue
		}

		fileWriter, err := writer.CreateFormFile("medias", attachment.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %d: %w", i, err)
		}

		if _, err := fileWriter.Write(attachment.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write attachment data: %w", err)
		}
	}

	fields := map[string]string{
		"body":    request.Body,
		"from_me": strconv.FormatBool(request.FromMe),
		"user_id": request.UserID,
	}

	if request.RequestID != "" {
		fields["request_id"] = request.RequestID
	}
	if !request.Timestamp.IsZero() {
		fields["timestamp"] = request.Timestamp.Format(time.RFC3339)
	}

	// Write all form fields
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// isRetryableError determines if an error is retryable
func (c *Client) isRetryableError(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}

	errStr := err.Error()

	// 5xx server errors are retryable
	if bytes.Contains([]byte(errStr), []byte("HTTP error 5")) {
		return true
	}

	// Rate limiting (429) is retryable
	if bytes.Contains([]byte(errStr), []byte("HTTP error 429")) {
		return true
	}

	// Network/connection errors are typically retryable
	if bytes.Contains([]byte(errStr), []byte("connection")) ||
		bytes.Contains([]byte(errStr), []byte("timeout")) ||
		bytes.Contains([]byte(errStr), []byte("refused")) {
		return true
	}

	return false
}

// Statistics methods
func (c *Client) incrementTotalUploads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalUploads++
}

func (c *Client) incrementSuccessUploads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successUploads++
}

func (c *Client) incrementFailedUploads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedUploads++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalUploads > 0 {
		successRate = float64(c.successUploads) / float64(c.totalUploads) * 100
	}

	activeUploads := c.config.MaxConcurrent - len(c.semaphore)

	return ClientStats{
		TotalUploads:    c.totalUploads,
		SuccessUploads:  c.successUploads,
		FailedUploads:   c.failedUploads,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveUploads:   activeUploads,
	}
}

// Close gracefully shuts down the client
func (c *Client) Close() error {
	// Wait for all active requests to complete
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
