package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clebio2030/zaprundeploy/internal/config"
	"github.com/Clebio2030/zaprundeploy/internal/convert"
	"github.com/Clebio2030/zaprundeploy/internal/metrics"
	"github.com/Clebio2030/zaprundeploy/internal/notify"
	"github.com/Clebio2030/zaprundeploy/internal/store"
)

// HTTPServer provides the HTTP API for message upload, retrieval and
// realtime subscription
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	pipeline *convert.ServerPipeline
	messages store.MessageStore
	hub      *notify.Hub
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger,
	pipeline *convert.ServerPipeline, messages store.MessageStore,
	hub *notify.Hub, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		pipeline:  pipeline,
		messages:  messages,
		hub:       hub,
		metrics:   m,
		startTime: time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Message upload and listing per chat
	mux.HandleFunc("/companies/", h.withMetrics("/companies/{id}/chats/{id}/messages", h.handleChatMessages))

	// Welcome media shown before any conversation is selected
	mux.HandleFunc("/settings/welcome-media", h.withMetrics("/settings/welcome-media", h.handleWelcomeMedia))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Websocket subscriptions
	mux.Handle("/ws", h.hub)

	// Stored media files
	prefix := "/" + strings.Trim(h.config.Storage.URLPrefix, "/") + "/"
	mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(h.config.Storage.PublicDir))))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// chatPath is a parsed /companies/{company_id}/chats/{chat_id}/messages path
type chatPath struct {
	companyID string
	chatID    string
}

func parseChatPath(path string) (chatPath, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 5 || parts[0] != "companies" || parts[2] != "chats" || parts[4] != "messages" {
		return chatPath{}, false
	}
	if parts[1] == "" || parts[3] == "" {
		return chatPath{}, false
	}
	return chatPath{companyID: parts[1], chatID: parts[3]}, true
}

// handleChatMessages implements the /companies/{id}/chats/{id}/messages endpoint
func (h *HTTPServer) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	path, ok := parseChatPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCreateMessage(w, r, path)
	case http.MethodGet:
		h.handleListMessages(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCreateMessage stores an uploaded message with its media files,
// persists it and broadcasts it to the chat room.
func (h *HTTPServer) handleCreateMessage(w http.ResponseWriter, r *http.Request, path chatPath) {
	maxSize := h.config.Upload.MaxSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		h.metrics.RecordUploadRejected()
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	message := &store.Message{
		CompanyID: path.companyID,
		ChatID:    path.chatID,
		UserID:    r.FormValue("user_id"),
		Body:      r.FormValue("body"),
		FromMe:    r.FormValue("from_me") == "true",
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["medias"] {
			h.metrics.RecordUploadReceived(header.Size)

			processStart := time.Now()
			stored, err := h.storeUpload(r.Context(), header)
			if err != nil {
				h.metrics.RecordUploadRejected()
				h.logger.Error("Failed to store upload",
					slog.String("file", header.Filename),
					slog.String("error", err.Error()))
				http.Error(w, "Failed to store media", http.StatusInternalServerError)
				return
			}
			h.metrics.RecordUploadStored()

			if stored.IsAudio {
				elapsed := time.Since(processStart).Seconds()
				if stored.Metadata.UniversalCompatible {
					h.metrics.RecordTranscodeSuccess(elapsed)
				} else {
					h.metrics.RecordTranscodeFallback(elapsed)
				}
				h.metrics.RecordDurationProbe(stored.Metadata.Duration > 0)
			}

			message.Files = append(message.Files, store.File{
				Name:                stored.FileName,
				Path:                strings.Trim(h.config.Storage.URLPrefix, "/") + "/" + stored.FileName,
				MIME:                stored.MIME,
				Size:                stored.Size,
				IsAudio:             stored.IsAudio,
				Duration:            stored.Metadata.Duration,
				UniversalCompatible: stored.Metadata.UniversalCompatible,
			})
		}
	}

	if message.Body == "" && len(message.Files) == 0 {
		http.Error(w, "Message must have a body or media", http.StatusBadRequest)
		return
	}

	if err := h.messages.CreateMessage(r.Context(), message); err != nil {
		h.logger.Error("Failed to persist message",
			slog.String("chat_id", path.chatID),
			slog.String("error", err.Error()))
		http.Error(w, "Failed to store message", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(notify.RoomKey(path.companyID, path.chatID), notify.Event{
		Action:  "create",
		Message: message,
		Chat:    map[string]string{"id": path.chatID},
	})
	h.metrics.RecordEventBroadcast()

	h.logger.Info("Message created",
		slog.String("message_id", message.ID),
		slog.String("chat_id", path.chatID),
		slog.Int("files", len(message.Files)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// storeUpload spools the multipart file to a temp path and runs it
// through the conversion pipeline.
func (h *HTTPServer) storeUpload(ctx context.Context, header *multipart.FileHeader) (convert.Stored, error) {
	file, err := header.Open()
	if err != nil {
		return convert.Stored{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return convert.Stored{}, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return convert.Stored{}, fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return convert.Stored{}, fmt.Errorf("failed to close temp file: %w", err)
	}

	upload := convert.Upload{
		TempPath:     tmp.Name(),
		OriginalName: header.Filename,
		MIME:         header.Header.Get("Content-Type"),
	}

	return h.pipeline.Process(ctx, upload, h.config.Storage.PublicDir)
}

// handleListMessages returns messages for a chat in chronological order
func (h *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request, path chatPath) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	before := r.URL.Query().Get("before")

	messages, err := h.messages.GetMessages(r.Context(), path.chatID, limit, before)
	if err != nil {
		h.logger.Error("Failed to list messages",
			slog.String("chat_id", path.chatID),
			slog.String("error", err.Error()))
		http.Error(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"chat_id":   path.chatID,
		"count":     len(messages),
		"messages":  messages,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleWelcomeMedia implements the /settings/welcome-media endpoint
func (h *HTTPServer) handleWelcomeMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	media := map[string]string{
		"type":  h.config.WelcomeMedia.Type,
		"url":   h.config.WelcomeMedia.URL,
		"width": h.config.WelcomeMedia.Width,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(media)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	hubStats := h.hub.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "voice-message-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"notifications": map[string]interface{}{
				"status":  "running",
				"rooms":   hubStats.Rooms,
				"clients": hubStats.Clients,
			},
			"storage": map[string]interface{}{
				"status":     "running",
				"public_dir": h.config.Storage.PublicDir,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	hubStats := h.hub.GetStats()
	h.metrics.SetConnectedClients(hubStats.Clients)

	stats := map[string]interface{}{
		"uptime":        uptime.String(),
		"timestamp":     time.Now().UTC(),
		"notifications": hubStats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":    h.config.Server.Port,
			"address": h.config.Server.Address,
		},
		"storage": map[string]interface{}{
			"public_dir":     h.config.Storage.PublicDir,
			"url_prefix":     h.config.Storage.URLPrefix,
			"alt_url_prefix": h.config.Storage.AltURLPrefix,
			"base_url":       h.config.Storage.BaseURL,
		},
		"transcode": map[string]interface{}{
			"codec":   h.config.Transcode.Codec,
			"bitrate": h.config.Transcode.Bitrate,
			"timeout": h.config.Transcode.Timeout,
		},
		"upload": map[string]interface{}{
			"max_size_mb":    h.config.Upload.MaxSizeMB,
			"max_retries":    h.config.Upload.MaxRetries,
			"max_concurrent": h.config.Upload.MaxConcurrent,
			// Note: endpoint credentials are intentionally omitted
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice Message Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                       "API documentation",
			"GET /health":                 "Service health check",
			"POST /companies/{company_id}/chats/{chat_id}/messages": "Upload a message with media",
			"GET /companies/{company_id}/chats/{chat_id}/messages":  "List chat messages",
			"GET /settings/welcome-media": "Welcome media settings",
			"GET /config":                 "Get service configuration",
			"GET /stats":                  "Get service statistics",
			"GET /metrics":                "Prometheus metrics",
			"GET /ws":                     "Websocket chat subscription",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
