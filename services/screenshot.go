package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evo-faceit/arena-server/storage"
)

// ScreenshotStore принимает скриншот результатов матча — либо base64
// data-URL, либо уже готовую ссылку — и возвращает публичный URL.
// Загрузка best-effort: при ошибке результаты сохраняются без скриншота.
type ScreenshotStore struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewScreenshotStore(uploader storage.FileUploader, logger *slog.Logger) *ScreenshotStore {
	return &ScreenshotStore{
		uploader: uploader,
		logger:   logger,
	}
}

// Store возвращает URL сохранённого скриншота или пустую строку.
func (s *ScreenshotStore) Store(ctx context.Context, matchID, screenshot string) string {
	if s == nil || screenshot == "" {
		return ""
	}

	if strings.HasPrefix(screenshot, "http://") || strings.HasPrefix(screenshot, "https://") {
		return screenshot
	}

	contentType, data, err := decodeDataURL(screenshot)
	if err != nil {
		s.logger.Error("failed to decode results screenshot",
			slog.String("match_id", matchID), slog.Any("error", err))
		return ""
	}

	if s.uploader == nil {
		s.logger.Warn("screenshot upload skipped: no uploader configured",
			slog.String("match_id", matchID))
		return ""
	}

	ext := "png"
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 && parts[1] != "" {
		ext = parts[1]
	}
	key := fmt.Sprintf("matches/%s/results_%d.%s", matchID, time.Now().UTC().Unix(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("failed to upload results screenshot",
			slog.String("match_id", matchID), slog.Any("error", err))
		return ""
	}
	return result.Location
}

// decodeDataURL разбирает "data:image/png;base64,...." в тип и байты.
func decodeDataURL(raw string) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, fmt.Errorf("unsupported screenshot format")
	}

	meta, encoded, found := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data URL")
	}

	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "image/png"
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return contentType, data, nil
}
