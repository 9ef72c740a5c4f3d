package aws

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// NewS3Client creates an S3 client. Path-style addressing keeps LocalStack
// endpoints working.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
}

// SeedFileFetcher copies setup files from an S3 prefix into a local
// directory before seeding reads them.
type SeedFileFetcher struct {
	downloader *manager.Downloader
	bucket     string
	prefix     string
	logger     *zap.Logger
}

func NewSeedFileFetcher(client manager.DownloadAPIClient, bucket, prefix string, logger *zap.Logger) *SeedFileFetcher {
	return &SeedFileFetcher{
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     prefix,
		logger:     logger,
	}
}

// Fetch downloads each named object into dir. Files are staged next to
// their destination and only renamed into place once every download has
// succeeded, so a failure leaves the existing files untouched.
func (f *SeedFileFetcher) Fetch(ctx context.Context, dir string, names ...string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create seed dir %s: %w", dir, err)
	}

	staged := make([]string, 0, len(names))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, name := range names {
		tmp, err := f.download(ctx, dir, name)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, name := range names {
		dst := filepath.Join(dir, name)
		if err := os.Rename(staged[i], dst); err != nil {
			return fmt.Errorf("replace %s: %w", dst, err)
		}
	}
	staged = staged[:0]
	return nil
}

func (f *SeedFileFetcher) download(ctx context.Context, dir, name string) (string, error) {
	key := path.Join(f.prefix, name)
	file, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	n, err := f.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: sdkaws.String(f.bucket),
		Key:    sdkaws.String(key),
	})
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("download s3://%s/%s: %w", f.bucket, key, err)
	}
	f.logger.Info("Downloaded seed file", zap.String("key", key), zap.Int64("bytes", n))
	return file.Name(), nil
}
