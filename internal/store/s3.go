package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"quoteflow/internal/model"
)

// S3Options configures the S3 snapshot backend.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 keeps snapshots as Parquet objects in a bucket. Object replacement is
// atomic on the S3 side, which matches the whole-file rewrite policy.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	ctx    context.Context
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("empty s3 bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	return &S3{client: client, bucket: opts.Bucket, prefix: opts.Prefix, ctx: ctx}, nil
}

func (s *S3) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3) get(name string) ([]byte, error) {
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get s3 object %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", name, err)
	}
	return data, nil
}

func (s *S3) put(name string, data []byte) error {
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", name, err)
	}
	return nil
}

func (s *S3) LoadTickers() ([]model.Ticker, error) {
	data, err := s.get("tickers.parquet")
	if err != nil {
		return nil, err
	}
	return decodeTickers(data)
}

func (s *S3) SaveTickers(tickers []model.Ticker) error {
	data, err := encodeTickers(tickers)
	if err != nil {
		return err
	}
	return s.put("tickers.parquet", data)
}

func (s *S3) LoadQuotes(sourceKey string) ([]model.Quote, error) {
	data, err := s.get(quotesName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeQuotes(data)
}

func (s *S3) SaveQuotes(sourceKey string, quotes []model.Quote) error {
	data, err := encodeQuotes(quotes)
	if err != nil {
		return err
	}
	return s.put(quotesName(sourceKey), data)
}

func (s *S3) LoadSpans(sourceKey string) ([]model.DateSpan, error) {
	data, err := s.get(spansName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeSpans(data)
}

func (s *S3) SaveSpans(sourceKey string, spans []model.DateSpan) error {
	data, err := encodeSpans(sourceKey, spans)
	if err != nil {
		return err
	}
	return s.put(spansName(sourceKey), data)
}
