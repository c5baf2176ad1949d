package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
	"github.com/Clebio2030/zaprundeploy/internal/format"
)

// Upload describes a received file sitting in temporary storage.
type Upload struct {
	TempPath     string
	OriginalName string
	MIME         string
}

// Metadata carries the extracted properties of a stored file.
type Metadata struct {
	Duration            float64 `json:"duration,omitempty"`
	Format              string  `json:"format,omitempty"`
	Codec               string  `json:"codec,omitempty"`
	UniversalCompatible bool    `json:"universalCompatible,omitempty"`
}

// Stored is the outcome of processing an upload: the final file on disk
// plus the name and MIME type consistent with its bytes.
type Stored struct {
	FileName string
	Path     string
	MIME     string
	Size     int64
	IsAudio  bool
	Metadata Metadata
}

// ServerPipeline is the authoritative conversion stage. Every audio upload
// is transcoded to AAC/MP4; when the transcode fails the original bytes
// are stored unchanged under the same name so the message still sends.
type ServerPipeline struct {
	transcoder Transcoder
	prober     DurationProber
	codec      string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewServerPipeline creates the server-side conversion pipeline.
func NewServerPipeline(transcoder Transcoder, prober DurationProber, codec string, timeout time.Duration, logger *slog.Logger) *ServerPipeline {
	return &ServerPipeline{
		transcoder: transcoder,
		prober:     prober,
		codec:      codec,
		timeout:    timeout,
		logger:     logger,
	}
}

// Process classifies the upload, converts or moves it into destDir and
// returns the stored result. The temp file is always gone afterwards;
// failure to remove it is logged, never fatal.
func (p *ServerPipeline) Process(ctx context.Context, upload Upload, destDir string) (Stored, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("failed to create destination dir %s: %w", destDir, err)
	}

	isAudio := format.IsAudio(upload.MIME, upload.OriginalName)
	timestamp := time.Now().UnixMilli()

	if isAudio {
		return p.processAudio(ctx, upload, destDir, timestamp)
	}
	return p.processFile(upload, destDir, timestamp)
}

func (p *ServerPipeline) processAudio(ctx context.Context, upload Upload, destDir string, timestamp int64) (Stored, error) {
	fileName := format.StoredAudioName(upload.OriginalName, timestamp)
	dstPath := filepath.Join(destDir, fileName)

	transcodeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	converted := true
	mimeType := format.TargetAudioMIME
	metadata := Metadata{
		Format:              format.TargetAudioExtension,
		Codec:               p.codec,
		UniversalCompatible: true,
	}

	if err := p.transcoder.Transcode(transcodeCtx, upload.TempPath, dstPath); err != nil {
		p.logger.Error("Audio transcode failed, storing original bytes",
			slog.String("file", upload.OriginalName),
			slog.String("error", err.Error()),
		)

		// Drop any partial transcoder output before falling back.
		if rmErr := os.Remove(dstPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warn("Could not remove partial transcode output",
				slog.String("path", dstPath),
				slog.String("error", rmErr.Error()),
			)
		}

		// The fallback keeps the original extension and type so the
		// stored name and MIME stay consistent with the bytes.
		converted = false
		ext := originalAudioExtension(upload)
		fileName = fmt.Sprintf("%d-%s.%s", timestamp, format.SanitizeAudioBase(upload.OriginalName), ext)
		dstPath = filepath.Join(destDir, fileName)
		mimeType = originalAudioMIME(upload, ext)
		metadata = Metadata{Format: ext}

		if copyErr := copyFile(upload.TempPath, dstPath); copyErr != nil {
			return Stored{}, fmt.Errorf("failed to store original after transcode failure: %w", copyErr)
		}
	}

	p.removeTemp(upload.TempPath)

	stored := Stored{
		FileName: fileName,
		Path:     dstPath,
		MIME:     mimeType,
		IsAudio:  true,
		Metadata: metadata,
	}

	if info, err := os.Stat(dstPath); err == nil {
		stored.Size = info.Size()
	}

	if p.prober != nil {
		probeCtx, probeCancel := context.WithTimeout(ctx, p.timeout)
		duration, err := p.prober.Duration(probeCtx, dstPath)
		probeCancel()
		if err != nil {
			p.logger.Warn("Duration probe failed",
				slog.String("file", fileName),
				slog.String("error", err.Error()),
			)
		} else if audio.ValidDuration(duration) {
			stored.Metadata.Duration = duration
		}
	}

	p.logger.Info("Audio upload processed",
		slog.String("file", fileName),
		slog.Bool("converted", converted),
		slog.Float64("duration", stored.Metadata.Duration),
		slog.Int64("size_bytes", stored.Size),
	)

	return stored, nil
}

// originalAudioExtension picks the fallback extension for an audio upload
// the transcoder could not convert.
func originalAudioExtension(upload Upload) string {
	if ext := format.Extension(upload.OriginalName); ext != "" {
		return ext
	}
	if ext := format.ExtensionForMIME(upload.MIME); ext != "" {
		return ext
	}
	return "bin"
}

// originalAudioMIME resolves the reported type for a fallback-stored audio
// upload.
func originalAudioMIME(upload Upload, ext string) string {
	if upload.MIME != "" {
		return upload.MIME
	}
	if mimeType := format.MIMEForExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

func (p *ServerPipeline) processFile(upload Upload, destDir string, timestamp int64) (Stored, error) {
	fileName := format.StoredFileName(upload.OriginalName, timestamp)
	dstPath := filepath.Join(destDir, fileName)

	if err := os.Rename(upload.TempPath, dstPath); err != nil {
		p.logger.Warn("Rename failed, copying instead",
			slog.String("file", upload.OriginalName),
			slog.String("error", err.Error()),
		)

		if copyErr := copyFile(upload.TempPath, dstPath); copyErr != nil {
			return Stored{}, fmt.Errorf("failed to store upload: %w", copyErr)
		}
		p.removeTemp(upload.TempPath)
	}

	mimeType := upload.MIME
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	stored := Stored{
		FileName: fileName,
		Path:     dstPath,
		MIME:     mimeType,
	}
	if info, err := os.Stat(dstPath); err == nil {
		stored.Size = info.Size()
	}

	p.logger.Info("File upload processed",
		slog.String("file", fileName),
		slog.Int64("size_bytes", stored.Size),
	)

	return stored, nil
}

func (p *ServerPipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("Could not remove temp upload",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return out.Close()
}
