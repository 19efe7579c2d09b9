// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file adds an optional remote backup target: every archive written by
// writeArchive is additionally offloaded to S3 when a Manager has one
// configured, generalizing the teacher's pkg/archive/parquet/target.go
// S3Target (an S3-compatible object store destination for parquet files) to
// backup archives instead of parquet files. Upload failures are logged but
// never fail backup creation — the local archive plus catalog row is already
// the durable backup; S3 is a secondary copy.
package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// S3Target uploads backup archives to a bucket/prefix as a secondary copy.
type S3Target struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config configures an S3Target. AccessKeyID/SecretAccessKey are optional;
// when both are empty the default AWS credential chain (env vars, shared
// config, instance role) is used instead. Endpoint/UsePathStyle target an
// S3-compatible store (e.g. MinIO) rather than AWS itself.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// NewS3Target builds an S3Target from cfg.
func NewS3Target(ctx context.Context, cfg S3Config) (*S3Target, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup: s3 target: empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backup: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Target{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (t *S3Target) objectKey(rec Record) string {
	if t.prefix == "" {
		return rec.ID + ".tar.gz"
	}
	return t.prefix + "/" + rec.ID + ".tar.gz"
}

// Upload copies the archive file for rec to the configured bucket.
func (t *S3Target) Upload(ctx context.Context, rec Record) error {
	f, err := os.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("backup: opening %s for upload: %w", rec.Path, err)
	}
	defer f.Close()

	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(t.objectKey(rec)),
		Body:        f,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("backup: uploading %s to s3://%s/%s: %w", rec.Path, t.bucket, t.objectKey(rec), err)
	}
	return nil
}

// SetRemoteTarget attaches (or clears, with nil) an S3Target that every
// subsequently created archive is offloaded to.
func (m *Manager) SetRemoteTarget(t *S3Target) {
	m.remote = t
}

func (m *Manager) offloadToRemote(rec Record) {
	if m.remote == nil {
		return
	}
	if err := m.remote.Upload(context.Background(), rec); err != nil {
		cclog.Warnf("[Backup]> s3 offload failed for %s: %v", rec.ID, err)
	}
}
