package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"servicesync-server/config"
)

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cfg config.MediaConfig) (*CloudinaryStore, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, errors.New("cloudinary credentials are not set")
	}
	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryCloudName)
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: cfg.CloudinaryFolder}, nil
}

// Upload stores the image under a fresh public ID so uploads with the same
// file name never replace each other.
func (s *CloudinaryStore) Upload(ctx context.Context, file io.Reader, _, folder string) (*Asset, error) {
	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       path.Join(s.folder, folder),
		PublicID:     uuid.NewString(),
		ResourceType: "image",
	})
	if err != nil {
		return nil, err
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return &Asset{PublicID: res.PublicID, URL: res.SecureURL}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: "image"})
	return err
}

func (s *CloudinaryStore) Close(context.Context) error { return nil }
