// Package evidence stores the opaque payment evidence files candidates
// attach to enrollment requests. The platform never inspects the contents;
// references are informational metadata for reviewers.
package evidence

import (
	"context"
	"fmt"
	"io"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store writes evidence objects to an S3 bucket under the evidence/ prefix.
type Store struct {
	client *s3.Client
	bucket string
}

func NewStore(awsCfg awssdk.Config, bucket, endpointURL string) *Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = awssdk.String(endpointURL)
			o.UsePathStyle = true // required for localstack
		}
	})
	return &Store{client: client, bucket: bucket}
}

// Put uploads one evidence object and returns its opaque reference.
func (s *Store) Put(ctx context.Context, body io.Reader, contentType string) (string, error) {
	ref := "evidence/" + uuid.NewString()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(ref),
		Body:        body,
		ContentType: awssdk.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("evidence: upload: %w", err)
	}
	return ref, nil
}

// PresignGet returns a temporary download URL for a stored reference, so
// reviewers can inspect evidence without platform credentials.
func (s *Store) PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	presign := s3.NewPresignClient(s.client)
	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.bucket),
		Key:    awssdk.String(ref),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("evidence: presign: %w", err)
	}
	return req.URL, nil
}
