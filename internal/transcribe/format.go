package transcribe

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// SupportedFormats 转写服务接受的音频格式（文件扩展名）
var SupportedFormats = []string{"mp3", "wav", "m4a", "opus", "ogg", "webm", "flac"}

var contentTypeFormats = map[string]string{
	"audio/mpeg":      "mp3",
	"audio/mp3":       "mp3",
	"audio/mpeg3":     "mp3",
	"audio/wav":       "wav",
	"audio/wave":      "wav",
	"audio/x-wav":     "wav",
	"audio/vnd.wave":  "wav",
	"audio/mp4":       "m4a",
	"audio/m4a":       "m4a",
	"audio/x-m4a":     "m4a",
	"audio/opus":      "opus",
	"audio/ogg":       "ogg",
	"application/ogg": "ogg",
	"audio/webm":      "webm",
	"video/webm":      "webm",
	"audio/flac":      "flac",
	"audio/x-flac":    "flac",
}

func isSupported(format string) bool {
	return lo.Contains(SupportedFormats, format)
}

func formatFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return contentTypeFormats[mediaType]
}

func formatFromFilename(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if isSupported(ext) {
		return ext
	}
	return ""
}

// DetectFormat 依次根据声明的 Content-Type、文件扩展名和文件内容确定音频格式
func DetectFormat(audio Audio) (string, error) {
	if f := formatFromContentType(audio.ContentType); f != "" {
		return f, nil
	}
	if f := formatFromFilename(audio.Filename); f != "" {
		return f, nil
	}

	detected := mimetype.Detect(audio.Data)
	if f := formatFromContentType(detected.String()); f != "" {
		return f, nil
	}
	if f := formatFromFilename("x" + detected.Extension()); f != "" {
		return f, nil
	}

	declared := audio.ContentType
	if declared == "" {
		declared = detected.String()
	}
	return "", fmt.Errorf("%s (支持: %s)", declared, strings.Join(SupportedFormats, ", "))
}

// uploadFilename 转写服务按扩展名识别格式，确保文件名带有正确扩展名
func uploadFilename(filename, format string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" || base == "" {
		return "audio." + format
	}
	if strings.ToLower(strings.TrimPrefix(filepath.Ext(base), ".")) == format {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
