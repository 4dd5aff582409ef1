package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore 基于MinIO/S3的对象存储
type MinIOStore struct {
	client          *minio.Client
	bucket          string
	publicDomain    string
	presignExpiry   time.Duration
	downloadTimeout time.Duration
}

// NewMinIOStore 创建MinIO存储
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &MinIOStore{
		client:          client,
		bucket:          cfg.Bucket,
		publicDomain:    strings.TrimRight(cfg.PublicDomain, "/"),
		presignExpiry:   expiry,
		downloadTimeout: timeout,
	}, nil
}

// EnsureBucket 不存在时创建bucket
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Put 上传对象
func (s *MinIOStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Get 读取对象；读取受 download_timeout 限制，Close 时释放
func (s *MinIOStore) Get(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)

	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		cancel()
		return nil, 0, fmt.Errorf("get object: %w", err)
	}
	info, err := object.Stat()
	if err != nil {
		object.Close()
		cancel()
		return nil, 0, fmt.Errorf("stat object: %w", err)
	}
	return &timedReader{ReadCloser: object, cancel: cancel}, info.Size, nil
}

// Remove 删除对象
func (s *MinIOStore) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// URL 访问地址：配置了公开域名时直接拼接，否则预签名
func (s *MinIOStore) URL(ctx context.Context, objectName string) (string, error) {
	if s.publicDomain != "" {
		return s.publicDomain + "/" + s.bucket + "/" + objectName, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

type timedReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *timedReader) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
