package ocr

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"tenant-validation/internal/relay"
	"tenant-validation/internal/shared/storage/object"
)

var (
	ErrJobFailed        = errors.New("ocr job failed")
	ErrJobTimeout       = errors.New("ocr job deadline exceeded")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

const (
	ErrorCodeTimeout     = "OCR_TIMEOUT"
	ErrorCodeJobFailed   = "OCR_JOB_FAILED"
	ErrorCodeService     = "OCR_SERVICE_ERROR"
	ErrorCodeRelayFailed = "RELAY_COPY_FAILED"
	ErrorCodeStorage     = "STORAGE_ERROR"
	ErrorCodeUnsupported = "UNSUPPORTED_MEDIA"
)

func classifyFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrJobTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	case errors.Is(err, relay.ErrCopyFailed):
		return ErrorCodeRelayFailed
	case errors.Is(err, object.ErrNotFound):
		return ErrorCodeStorage
	case errors.Is(err, ErrUnsupportedMedia):
		return ErrorCodeUnsupported
	case errors.Is(err, ErrJobFailed):
		return ErrorCodeJobFailed
	}
	if strings.Contains(strings.ToLower(err.Error()), "storage") {
		return ErrorCodeStorage
	}
	return ErrorCodeService
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(err.Error()))
	const maxLen = 300
	if len(msg) > maxLen {
		n := maxLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return strings.ToValidUTF8(msg, "")
}
