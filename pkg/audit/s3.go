package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3API is the subset of the S3 client the sink uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink batches audit records as JSON lines and writes one object per
// batch under a time-based key prefix.
type S3Sink struct {
	client    s3API
	bucket    string
	prefix    string
	batchSize int

	mu    sync.Mutex
	buf   bytes.Buffer
	count int
}

// NewS3Sink creates an S3 audit sink.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: key prefix for audit objects (e.g., "audit/")
//   - batchSize: records per object; 0 uses the default of 100
func NewS3Sink(client *s3.Client, bucket, prefix string, batchSize int) *S3Sink {
	return newS3Sink(client, bucket, prefix, batchSize)
}

func newS3Sink(client s3API, bucket, prefix string, batchSize int) *S3Sink {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &S3Sink{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		batchSize: batchSize,
	}
}

// Write implements Sink. Records accumulate in memory until the batch
// is full, then flush as one object.
func (s *S3Sink) Write(ctx context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(line)
	s.buf.WriteByte('\n')
	s.count++

	if s.count < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

// Flush writes any buffered records immediately.
func (s *S3Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Close implements Sink, flushing any remaining records.
func (s *S3Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Flush(ctx)
}

func (s *S3Sink) flushLocked(ctx context.Context) error {
	if s.count == 0 {
		return nil
	}

	key := fmt.Sprintf("%s%s-%s.jsonl",
		s.prefix,
		time.Now().UTC().Format("2006/01/02/150405"),
		uuid.NewString())

	body := make([]byte, s.buf.Len())
	copy(body, s.buf.Bytes())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("audit: put object %s: %w", key, err)
	}

	s.buf.Reset()
	s.count = 0
	return nil
}
