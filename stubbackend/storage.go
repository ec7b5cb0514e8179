package stubbackend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StoredFile 保存后的位置。URL 是返回给前端的 file_url
type StoredFile struct {
	Path string
	URL  string
	Size int64
}

// MediaStore 生成结果的存放位置
type MediaStore interface {
	Save(ctx context.Context, key string, data []byte) (StoredFile, error)
}

// ObjectKey 构造 project/scene/shot/filename 形式的存储路径
func ObjectKey(project, sceneID, shotID, filename string) string {
	return path.Join(sanitize(project), sanitize(sceneID), sanitize(shotID), filename)
}

// sanitize 只保留字母数字和 . _ -，空格换成下划线
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "_"
	}
	return s
}

func contentTypeOf(name string) string {
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	}
	return "application/octet-stream"
}

// LocalStore 写到本地目录，由 /files/ 提供下载
type LocalStore struct {
	Dir string
}

func (s LocalStore) Save(_ context.Context, key string, data []byte) (StoredFile, error) {
	full := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("write %s: %w", full, err)
	}
	return StoredFile{Path: full, URL: "/files/" + key, Size: int64(len(data))}, nil
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Expiry    time.Duration
	Logger    *slog.Logger
}

// MinioStore 上传到对象存储，返回预签名的下载地址
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger *slog.Logger
}

func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	return &MinioStore{client: client, bucket: opts.Bucket, expiry: expiry, logger: logger}, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	s.logger.Info("bucket created", slog.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) Save(ctx context.Context, key string, data []byte) (StoredFile, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return StoredFile{}, err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentTypeOf(key),
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("upload to minio: %w", err)
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, make(url.Values))
	if err != nil {
		return StoredFile{}, fmt.Errorf("presign url: %w", err)
	}
	s.logger.Debug("object uploaded", slog.String("key", key))
	return StoredFile{Path: s.bucket + "/" + key, URL: presigned.String(), Size: int64(len(data))}, nil
}
