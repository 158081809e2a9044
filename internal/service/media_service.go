package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/walk-gallery/internal/models"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrEmptyMedia       = errors.New("media is empty")
)

var allowedTypes = map[models.Slot]map[string]struct{}{
	models.SlotImage:   {"png": {}, "jpg": {}, "gif": {}, "webp": {}},
	models.SlotDrawing: {"png": {}, "jpg": {}, "gif": {}, "webp": {}},
	models.SlotAudio:   {"wav": {}, "mp3": {}, "ogg": {}, "m4a": {}, "flac": {}, "webm": {}},
}

type MediaService interface {
	Stage(ctx context.Context, slot models.Slot, name string, data []byte) (*models.MediaRef, error)
}

type mediaService struct {
	uploader Uploader
}

// NewMediaService stages media through uploader, or inline as base64 when
// uploader is nil.
func NewMediaService(uploader Uploader) MediaService {
	return &mediaService{uploader: uploader}
}

func (s *mediaService) Stage(ctx context.Context, slot models.Slot, name string, data []byte) (*models.MediaRef, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMedia
	}

	allowed, ok := allowedTypes[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %s holds no media", ErrUnsupportedMedia, slot)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: unrecognised content", ErrUnsupportedMedia)
	}
	if _, ok := allowed[kind.Extension]; !ok {
		return nil, fmt.Errorf("%w: %s is not allowed for %s", ErrUnsupportedMedia, kind.Extension, slot)
	}

	mimeType := kind.MIME.Value
	if slot == models.SlotAudio && kind.Extension == "webm" {
		mimeType = "audio/webm"
	}

	ref := &models.MediaRef{Name: name, MimeType: mimeType}
	if s.uploader == nil {
		ref.Data = base64.StdEncoding.EncodeToString(data)
		return ref, nil
	}

	url, err := s.uploader.Upload(ctx, data, string(slot), mimeType)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	ref.URL = url
	return ref, nil
}
