package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ServePath is where GridFS-backed images are served from.
const ServePath = "/api/v1/media/"

// GridFSStore keeps images in a MongoDB GridFS bucket.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

func NewGridFSStore(ctx context.Context, uri, dbName string) (*GridFSStore, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is required for the gridfs media backend")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	bucket, err := gridfs.NewBucket(client.Database(dbName))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &GridFSStore{client: client, bucket: bucket}, nil
}

func (s *GridFSStore) Upload(_ context.Context, file io.Reader, filename, folder string) (*Asset, error) {
	id, err := s.bucket.UploadFromStream(path.Join(folder, filename), file)
	if err != nil {
		return nil, err
	}
	return &Asset{PublicID: id.Hex(), URL: ServePath + id.Hex()}, nil
}

func (s *GridFSStore) Delete(_ context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	objID, err := primitive.ObjectIDFromHex(publicID)
	if err != nil {
		return ErrNotFound
	}
	if err := s.bucket.Delete(objID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return err
	}
	return nil
}

// Download opens a stored image. The caller closes the reader.
func (s *GridFSStore) Download(_ context.Context, publicID string) (io.ReadCloser, string, error) {
	objID, err := primitive.ObjectIDFromHex(publicID)
	if err != nil {
		return nil, "", ErrNotFound
	}
	stream, err := s.bucket.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return stream, path.Base(stream.GetFile().Name), nil
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
