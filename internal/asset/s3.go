// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package asset

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignTTL is used when S3Config.PresignTTL is zero.
const DefaultPresignTTL = 15 * time.Minute

// S3Config configures an S3Store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-compatible services such as MinIO
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignTTL      time.Duration
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*presignedRequest, error)
}

type presignedRequest struct {
	URL string
}

// sdkPresigner adapts s3.PresignClient to presigner.
type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*presignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &presignedRequest{URL: req.URL}, nil
}

// S3Store issues time-limited presigned GET URLs for objects in a bucket.
type S3Store struct {
	bucket    string
	ttl       time.Duration
	presigner presigner
}

// NewS3Store creates an S3Store. Credentials fall back to the default AWS
// chain when AccessKeyID is empty.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Store(cfg, sdkPresigner{client: s3.NewPresignClient(client)}), nil
}

func newS3Store(cfg S3Config, p presigner) *S3Store {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &S3Store{bucket: cfg.Bucket, ttl: ttl, presigner: p}
}

// URL implements Store. ref is an object key, optionally written as
// "s3://bucket/key" when it names this store's bucket.
func (s *S3Store) URL(ctx context.Context, ref string) (string, error) {
	key, err := s.objectKey(ref)
	if err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, path.Base(key))),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

// Lifetime implements Store.
func (s *S3Store) Lifetime() time.Duration { return s.ttl }

func (s *S3Store) objectKey(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidRef
	}
	if strings.HasPrefix(ref, "s3://") {
		u, err := url.Parse(ref)
		if err != nil || u.Host != s.bucket {
			return "", fmt.Errorf("%w: %s is not in bucket %s", ErrInvalidRef, ref, s.bucket)
		}
		ref = u.Path
	}
	return cleanKey(ref)
}
