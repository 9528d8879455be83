package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Backend stores snapshots as S3 objects under a key prefix.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	backend := persist.NewS3Backend(s3.NewFromConfig(cfg), "my-bucket", "state/")
//	reg := strata.New(strata.WithPlugin(persist.New(backend)))
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend creates a backend writing to bucket with the given key
// prefix.
func NewS3Backend(client *s3.Client, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Load implements Backend. A missing key is not an error.
func (b *S3Backend) Load(ctx context.Context, storeID string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(storeID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: s3 get %q: %w", storeID, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("persist: s3 read %q: %w", storeID, err)
	}
	return raw, nil
}

// Store implements Backend.
func (b *S3Backend) Store(ctx context.Context, storeID string, state []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(storeID)),
		Body:        bytes.NewReader(state),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("persist: s3 put %q: %w", storeID, err)
	}
	return nil
}

func (b *S3Backend) key(storeID string) string {
	return b.prefix + storeID + ".json"
}
