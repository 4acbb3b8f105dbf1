package staging

import (
	"context"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/forgeci/pubforge/internal/domain"
	"github.com/forgeci/pubforge/internal/platform/httpclient"
)

// Store copies built artifacts to an S3-compatible bucket before they
// are published, leaving an audit trail of exactly what was pushed.
type Store struct {
	client *minio.Client
	bucket string
}

func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: httpclient.NewTransport(),
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the staging bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("staging bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
}

// Stage uploads one artifact under runs/<run-id>/.
func (s *Store) Stage(ctx context.Context, runID string, art domain.Artifact) error {
	f, err := os.Open(art.Path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("runs/%s/%s", runID, art.Name)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, art.SizeBytes, minio.PutObjectOptions{
		ContentType: art.ContentType,
		UserMetadata: map[string]string{
			"sha256": art.SHA256,
		},
	})
	if err != nil {
		return fmt.Errorf("stage %s: %w", art.Name, err)
	}
	return nil
}
