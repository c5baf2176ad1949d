package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Address:         "0.0.0.0",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		Storage: StorageConfig{
			PublicDir:    "./public",
			URLPrefix:    "public",
			AltURLPrefix: "arquivo",
			BaseURL:      "http://localhost:8080",
			DatabasePath: "./data/messages.db",
		},
		Transcode: TranscodeConfig{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Codec:         "aac",
			Bitrate:       "128k",
			Timeout:       60,
		},
		Recording: RecordingConfig{
			MinDuration:     1.0,
			TickInterval:    1.0,
			MetadataTimeout: 2.0,
			SessionTimeout:  300,
		},
		Playback: PlaybackConfig{
			ResolveTimeout:   5.0,
			MetadataTimeout:  3.0,
			RetryDelay:       0.3,
			DefaultDuration:  30.0,
			MaxSameRetries:   1,
			MaxExtraAttempts: 2,
			SampleInterval:   0.1,
		},
		Upload: UploadConfig{
			Endpoint:      "http://localhost:8080/api/chats",
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 10,
			MaxSizeMB:     25,
		},
		WelcomeMedia: WelcomeMediaConfig{
			Type:  "image",
			URL:   "https://i.imgur.com/ZCODluy.png",
			Width: "50%",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "empty public dir",
			mutate:      func(c *Config) { c.Storage.PublicDir = "" },
			expectError: true,
			errorMsg:    "public_dir cannot be empty",
		},
		{
			name:        "zero recording minimum",
			mutate:      func(c *Config) { c.Recording.MinDuration = 0 },
			expectError: true,
			errorMsg:    "min_duration must be positive",
		},
		{
			name:        "negative playback retries",
			mutate:      func(c *Config) { c.Playback.MaxSameRetries = -1 },
			expectError: true,
			errorMsg:    "max_same_retries cannot be negative",
		},
		{
			name:        "zero default duration",
			mutate:      func(c *Config) { c.Playback.DefaultDuration = 0 },
			expectError: true,
			errorMsg:    "default_duration must be positive",
		},
		{
			name:        "invalid welcome media type",
			mutate:      func(c *Config) { c.WelcomeMedia.Type = "audio" },
			expectError: true,
			errorMsg:    "type must be 'image' or 'video'",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  port: 8080
  address: "0.0.0.0"
  read_timeout: 30
  write_timeout: 30
  shutdown_timeout: 10
storage:
  public_dir: "./public"
  base_url: "http://localhost:8080"
  database_path: "./data/messages.db"
transcode:
  timeout: 60
recording:
  min_duration: 1.0
  tick_interval: 1.0
  metadata_timeout: 2.0
  session_timeout: 300
playback:
  resolve_timeout: 5.0
  metadata_timeout: 3.0
  retry_delay: 0.3
  default_duration: 30.0
  max_same_retries: 1
  max_extra_attempts: 2
  sample_interval: 0.1
upload:
  endpoint: "http://localhost:8080/api/chats"
  timeout: 30
  max_retries: 3
  max_concurrent: 10
  max_size_mb: 25
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: 8080
  read_timeout: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
server:
  port: 8080
  # missing address
`,
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	config := validConfig()
	config.Storage.URLPrefix = ""
	config.Storage.AltURLPrefix = ""
	config.Transcode.Codec = ""
	config.Transcode.Bitrate = ""
	config.WelcomeMedia = WelcomeMediaConfig{}

	config.applyDefaults()

	if config.Storage.URLPrefix != "public" {
		t.Errorf("Expected url_prefix default 'public', got '%s'", config.Storage.URLPrefix)
	}
	if config.Storage.AltURLPrefix != "arquivo" {
		t.Errorf("Expected alt_url_prefix default 'arquivo', got '%s'", config.Storage.AltURLPrefix)
	}
	if config.Transcode.Codec != "aac" {
		t.Errorf("Expected codec default 'aac', got '%s'", config.Transcode.Codec)
	}
	if config.Transcode.Bitrate != "128k" {
		t.Errorf("Expected bitrate default '128k', got '%s'", config.Transcode.Bitrate)
	}
	if config.WelcomeMedia.Type != "image" {
		t.Errorf("Expected welcome media type default 'image', got '%s'", config.WelcomeMedia.Type)
	}
	if config.WelcomeMedia.Width != "50%" {
		t.Errorf("Expected welcome media width default '50%%', got '%s'", config.WelcomeMedia.Width)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected defaults to validate but got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	recording := RecordingConfig{
		MinDuration:     1.0,
		TickInterval:    1.0,
		MetadataTimeout: 2.5,
		SessionTimeout:  300,
	}

	if recording.GetMinDuration() != 1*time.Second {
		t.Errorf("Expected 1 second, got %v", recording.GetMinDuration())
	}

	if recording.GetMetadataTimeout() != 2500*time.Millisecond {
		t.Errorf("Expected 2.5 seconds, got %v", recording.GetMetadataTimeout())
	}

	if recording.GetSessionTimeout() != 300*time.Second {
		t.Errorf("Expected 300 seconds, got %v", recording.GetSessionTimeout())
	}

	playback := PlaybackConfig{
		ResolveTimeout: 5.0,
		RetryDelay:     0.3,
		SampleInterval: 0.1,
	}

	if playback.GetResolveTimeout() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", playback.GetResolveTimeout())
	}

	if playback.GetRetryDelay() != 300*time.Millisecond {
		t.Errorf("Expected 0.3 seconds, got %v", playback.GetRetryDelay())
	}

	if playback.GetSampleInterval() != 100*time.Millisecond {
		t.Errorf("Expected 0.1 seconds, got %v", playback.GetSampleInterval())
	}

	upload := UploadConfig{
		Timeout:   30,
		MaxSizeMB: 25,
	}

	if upload.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", upload.GetTimeoutDuration())
	}

	if upload.MaxSizeBytes() != 25*1024*1024 {
		t.Errorf("Expected 25 MB in bytes, got %d", upload.MaxSizeBytes())
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
