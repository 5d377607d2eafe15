// Package media stores uploaded request and avatar images.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"servicesync-server/config"
)

const MaxImageSize = 5 * 1024 * 1024

var (
	ErrDisabled     = errors.New("image uploads are not configured")
	ErrInvalidImage = errors.New("image must be a jpg, jpeg, png or webp file of at most 5MB")
	ErrNotFound     = errors.New("media not found")
)

// Asset identifies a stored image.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Store interface {
	Upload(ctx context.Context, file io.Reader, filename, folder string) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
	Close(ctx context.Context) error
}

// Downloader is implemented by stores that serve their own files.
type Downloader interface {
	Download(ctx context.Context, publicID string) (io.ReadCloser, string, error)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch cfg.Backend {
	case "cloudinary":
		return NewCloudinaryStore(cfg)
	case "gridfs":
		return NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "", "none":
		log.Println("⚠️ MEDIA_BACKEND not set, image uploads are disabled")
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND %q", cfg.Backend)
	}
}

// Disabled rejects uploads and ignores deletes.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string, string) (*Asset, error) {
	return nil, ErrDisabled
}

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Close(context.Context) error { return nil }

// ValidateImage validates extension and size (<= 5MB)
func ValidateImage(h *multipart.FileHeader) error {
	if h == nil || h.Size <= 0 || h.Size > MaxImageSize {
		return ErrInvalidImage
	}
	switch strings.ToLower(filepath.Ext(h.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return nil
	default:
		return ErrInvalidImage
	}
}

// UploadFile validates and stores one multipart image.
func UploadFile(ctx context.Context, store Store, h *multipart.FileHeader, folder string) (*Asset, error) {
	if err := ValidateImage(h); err != nil {
		return nil, err
	}
	file, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	asset, err := store.Upload(ctx, file, h.Filename, folder)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Image uploaded to %s: %s", folder, asset.PublicID)
	return asset, nil
}
