package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Transcode    TranscodeConfig    `yaml:"transcode"`
	Recording    RecordingConfig    `yaml:"recording"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Upload       UploadConfig       `yaml:"upload"`
	WelcomeMedia WelcomeMediaConfig `yaml:"welcome_media"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int    `yaml:"port"`
	Address         string `yaml:"address"`
	ReadTimeout     int    `yaml:"read_timeout"`     // seconds
	WriteTimeout    int    `yaml:"write_timeout"`    // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// StorageConfig contains stored-file layout and URL construction parameters
type StorageConfig struct {
	PublicDir    string `yaml:"public_dir"`
	URLPrefix    string `yaml:"url_prefix"`
	AltURLPrefix string `yaml:"alt_url_prefix"`
	BaseURL      string `yaml:"base_url"`
	DatabasePath string `yaml:"database_path"`
}

// TranscodeConfig contains server-side transcoding parameters
type TranscodeConfig struct {
	FFmpegBinary  string `yaml:"ffmpeg_binary"`
	FFprobeBinary string `yaml:"ffprobe_binary"`
	Codec         string `yaml:"codec"`
	Bitrate       string `yaml:"bitrate"`
	Timeout       int    `yaml:"timeout"` // seconds
}

// RecordingConfig contains voice recording parameters
type RecordingConfig struct {
	MinDuration     float64 `yaml:"min_duration"`     // seconds
	TickInterval    float64 `yaml:"tick_interval"`    // seconds
	MetadataTimeout float64 `yaml:"metadata_timeout"` // seconds
	SessionTimeout  int     `yaml:"session_timeout"`  // seconds
}

// PlaybackConfig contains playback and duration resolution parameters
type PlaybackConfig struct {
	ResolveTimeout   float64 `yaml:"resolve_timeout"`   // seconds
	MetadataTimeout  float64 `yaml:"metadata_timeout"`  // seconds
	RetryDelay       float64 `yaml:"retry_delay"`       // seconds
	DefaultDuration  float64 `yaml:"default_duration"`  // seconds
	MaxSameRetries   int     `yaml:"max_same_retries"`
	MaxExtraAttempts int     `yaml:"max_extra_attempts"`
	SampleInterval   float64 `yaml:"sample_interval"` // seconds
}

// UploadConfig contains upload client configuration
type UploadConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
}

// WelcomeMediaConfig contains the welcome media shown before any conversation
type WelcomeMediaConfig struct {
	Type  string `yaml:"type"`
	URL   string `yaml:"url"`
	Width string `yaml:"width"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills fields that may be omitted from the file
func (c *Config) applyDefaults() {
	if c.Storage.URLPrefix == "" {
		c.Storage.URLPrefix = "public"
	}
	if c.Storage.AltURLPrefix == "" {
		c.Storage.AltURLPrefix = "arquivo"
	}
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = "ffmpeg"
	}
	if c.Transcode.FFprobeBinary == "" {
		c.Transcode.FFprobeBinary = "ffprobe"
	}
	if c.Transcode.Codec == "" {
		c.Transcode.Codec = "aac"
	}
	if c.Transcode.Bitrate == "" {
		c.Transcode.Bitrate = "128k"
	}
	if c.WelcomeMedia.Type == "" {
		c.WelcomeMedia.Type = "image"
	}
	if c.WelcomeMedia.URL == "" {
		c.WelcomeMedia.URL = "https://i.imgur.com/ZCODluy.png"
	}
	if c.WelcomeMedia.Width == "" {
		c.WelcomeMedia.Width = "50%"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Transcode.Validate(); err != nil {
		return fmt.Errorf("transcode config: %w", err)
	}

	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload config: %w", err)
	}

	if err := c.WelcomeMedia.Validate(); err != nil {
		return fmt.Errorf("welcome_media config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", s.ShutdownTimeout)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.PublicDir == "" {
		return fmt.Errorf("public_dir cannot be empty")
	}

	if s.URLPrefix == "" {
		return fmt.Errorf("url_prefix cannot be empty")
	}

	if s.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}

	return nil
}

// Validate validates transcode configuration
func (t *TranscodeConfig) Validate() error {
	if t.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg_binary cannot be empty")
	}

	if t.Codec == "" {
		return fmt.Errorf("codec cannot be empty")
	}

	if t.Bitrate == "" {
		return fmt.Errorf("bitrate cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates recording configuration
func (r *RecordingConfig) Validate() error {
	if r.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", r.MinDuration)
	}

	if r.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %f", r.TickInterval)
	}

	if r.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", r.SessionTimeout)
	}

	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve_timeout must be positive, got %f", p.ResolveTimeout)
	}

	if p.MetadataTimeout <= 0 {
		return fmt.Errorf("metadata_timeout must be positive, got %f", p.MetadataTimeout)
	}

	if p.DefaultDuration <= 0 {
		return fmt.Errorf("default_duration must be positive, got %f", p.DefaultDuration)
	}

	if p.MaxSameRetries < 0 {
		return fmt.Errorf("max_same_retries cannot be negative, got %d", p.MaxSameRetries)
	}

	if p.MaxExtraAttempts < 0 {
		return fmt.Errorf("max_extra_attempts cannot be negative, got %d", p.MaxExtraAttempts)
	}

	if p.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive, got %f", p.SampleInterval)
	}

	return nil
}

// Validate validates upload configuration
func (u *UploadConfig) Validate() error {
	if u.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if u.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", u.Timeout)
	}

	if u.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", u.MaxRetries)
	}

	if u.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", u.MaxConcurrent)
	}

	if u.MaxSizeMB < 1 {
		return fmt.Errorf("max_size_mb must be at least 1, got %d", u.MaxSizeMB)
	}

	return nil
}

// Validate validates welcome media configuration
func (w *WelcomeMediaConfig) Validate() error {
	validTypes := map[string]bool{"image": true, "video": true}
	if !validTypes[w.Type] {
		return fmt.Errorf("type must be 'image' or 'video', got '%s'", w.Type)
	}

	if w.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetShutdownTimeout returns the shutdown timeout as a time.Duration
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetTimeoutDuration returns the transcode timeout as a time.Duration
func (t *TranscodeConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetMinDuration returns the minimum recording duration as a time.Duration
func (r *RecordingConfig) GetMinDuration() time.Duration {
	return time.Duration(r.MinDuration * float64(time.Second))
}

// GetTickInterval returns the elapsed tick interval as a time.Duration
func (r *RecordingConfig) GetTickInterval() time.Duration {
	return time.Duration(r.TickInterval * float64(time.Second))
}

// GetMetadataTimeout returns the recorded-blob metadata probe timeout as a time.Duration
func (r *RecordingConfig) GetMetadataTimeout() time.Duration {
	return time.Duration(r.MetadataTimeout * float64(time.Second))
}

// GetSessionTimeout returns the idle session timeout as a time.Duration
func (r *RecordingConfig) GetSessionTimeout() time.Duration {
	return time.Duration(r.SessionTimeout) * time.Second
}

// GetResolveTimeout returns the overall duration resolution budget as a time.Duration
func (p *PlaybackConfig) GetResolveTimeout() time.Duration {
	return time.Duration(p.ResolveTimeout * float64(time.Second))
}

// GetMetadataTimeout returns the per-strategy metadata timeout as a time.Duration
func (p *PlaybackConfig) GetMetadataTimeout() time.Duration {
	return time.Duration(p.MetadataTimeout * float64(time.Second))
}

// GetRetryDelay returns the delay before retrying an aborted play as a time.Duration
func (p *PlaybackConfig) GetRetryDelay() time.Duration {
	return time.Duration(p.RetryDelay * float64(time.Second))
}

// GetSampleInterval returns the position sampling interval as a time.Duration
func (p *PlaybackConfig) GetSampleInterval() time.Duration {
	return time.Duration(p.SampleInterval * float64(time.Second))
}

// GetTimeoutDuration returns the upload timeout as a time.Duration
func (u *UploadConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// MaxSizeBytes returns the upload size limit in bytes
func (u *UploadConfig) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) * 1024 * 1024
}
