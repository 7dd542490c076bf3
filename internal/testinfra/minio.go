// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMinIOImage is the MinIO server image.
	DefaultMinIOImage = "minio/minio:latest"

	minioPort      = "9000/tcp"
	minioAccessKey = "custodian"
	minioSecretKey = "custodian-secret-key"
	minioRegion    = "us-east-1"
)

// MinIOContainer is a running S3-compatible server with one bucket.
type MinIOContainer struct {
	testcontainers.Container
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewMinIOContainer starts MinIO and creates bucket.
func NewMinIOContainer(ctx context.Context, bucket string) (*MinIOContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMinIOImage,
		ExposedPorts: []string{minioPort},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioAccessKey,
			"MINIO_ROOT_PASSWORD": minioSecretKey,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").
			WithPort(minioPort).
			WithStartupTimeout(time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio container: %w", err)
	}

	host, port, err := hostPort(ctx, container, minioPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, err
	}

	m := &MinIOContainer{
		Container:       container,
		Endpoint:        fmt.Sprintf("http://%s:%d", host, port),
		Region:          minioRegion,
		Bucket:          bucket,
		AccessKeyID:     minioAccessKey,
		SecretAccessKey: minioSecretKey,
	}
	if err := m.createBucket(ctx); err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, err
	}
	return m, nil
}

// Client returns an S3 client for the container.
func (m *MinIOContainer) Client() *s3.Client {
	return s3.New(s3.Options{
		Region:       m.Region,
		BaseEndpoint: aws.String(m.Endpoint),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(m.AccessKeyID, m.SecretAccessKey, ""),
	})
}

func (m *MinIOContainer) createBucket(ctx context.Context) error {
	if _, err := m.Client().CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(m.Bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.Bucket, err)
	}
	return nil
}
