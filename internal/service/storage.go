package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/clipilot/clipilot/internal/config"
	"github.com/clipilot/clipilot/pkg/logger"
)

// StorageWriter 抽象备份存储写入器
type StorageWriter interface {
	Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error)
}

// StorageMeta 写入元数据
type StorageMeta struct {
	SaveDir    string
	TaskID     string
	DeviceName string
	Host       string
	Filename   string
	// Backend 覆盖默认后端：local | minio
	Backend string
}

// StoredObject 写入结果
type StoredObject struct {
	URI      string `json:"uri"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// NewStorageWriter 根据配置创建写入器：按 Backend 路由，MinIO 失败回退本地
func NewStorageWriter(cfg *config.Config) StorageWriter {
	w := &delegatingWriter{cfg: cfg, local: &localWriter{cfg: cfg}}
	w.minio = initMinioWriter(cfg)
	return w
}

type delegatingWriter struct {
	cfg   *config.Config
	local *localWriter
	minio *minioWriter
}

func (w *delegatingWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	backend := strings.ToLower(strings.TrimSpace(meta.Backend))
	if backend == "" {
		backend = strings.ToLower(strings.TrimSpace(w.cfg.Backup.StorageBackend))
	}
	if backend == "minio" {
		if w.minio == nil {
			logger.Warn("minio backend selected but client not initialized; falling back to local")
			return w.local.Write(ctx, meta, content)
		}
		obj, err := w.minio.Write(ctx, meta, content)
		if err != nil {
			logger.WithField("error", err).Warn("minio write failed; falling back to local")
			return w.local.Write(ctx, meta, content)
		}
		return obj, nil
	}
	return w.local.Write(ctx, meta, content)
}

// objectPath 统一的存储层级：prefix / save_dir / device / date_time / task
func (m StorageMeta) objectPath(prefix string) string {
	parts := make([]string, 0, 6)
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	if sd := strings.TrimSpace(m.SaveDir); sd != "" {
		parts = append(parts, sd)
	}
	device := strings.TrimSpace(m.DeviceName)
	if device == "" {
		device = strings.TrimSpace(m.Host)
	}
	parts = append(parts, slug(device))
	parts = append(parts, time.Now().Format("20060102_150405"))
	if tid := strings.TrimSpace(m.TaskID); tid != "" {
		parts = append(parts, tid)
	}
	return path.Join(parts...)
}

func (m StorageMeta) filename() string {
	name := slug(m.Filename)
	if name == "" {
		name = "output"
	}
	if !strings.Contains(name, ".") {
		name += ".txt"
	}
	return name
}

// slug 规整路径片段：非法字符替换为下划线
func slug(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type localWriter struct {
	cfg *config.Config
}

func (w *localWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	baseDir := strings.TrimSpace(w.cfg.Backup.Local.BaseDir)
	if baseDir == "" {
		baseDir = "./data/backups"
	}
	dirPath := filepath.Join(baseDir, filepath.FromSlash(meta.objectPath(w.cfg.Backup.Prefix)))
	if w.cfg.Backup.Local.MkdirIfMissing {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return StoredObject{}, fmt.Errorf("failed to create dir: %w", err)
		}
	}
	fullPath := filepath.Join(dirPath, meta.filename())
	data := []byte(content)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("failed to write file: %w", err)
	}
	sum := sha256.Sum256(data)
	return StoredObject{
		URI:      "file://" + fullPath,
		Size:     int64(len(data)),
		Checksum: "sha256:" + hex.EncodeToString(sum[:]),
	}, nil
}

type minioWriter struct {
	cfg    *config.Config
	client *minio.Client
}

// initMinioWriter 初始化 MinIO 写入器；配置不全或连通性校验失败返回 nil
func initMinioWriter(cfg *config.Config) *minioWriter {
	host := strings.TrimSpace(cfg.Storage.Minio.Host)
	port := cfg.Storage.Minio.Port
	if host == "" || port <= 0 {
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.Storage.Minio.AccessKey, cfg.Storage.Minio.SecretKey, ""),
		Secure:    cfg.Storage.Minio.Secure,
		Transport: transport,
	})
	if err != nil {
		logger.WithField("error", err).Error("minio client initialization failed")
		return nil
	}
	w := &minioWriter{cfg: cfg, client: client}

	bucket := strings.TrimSpace(cfg.Storage.Minio.Bucket)
	if bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.ensureBucket(ctx, bucket); err != nil {
			logger.WithField("error", err).Warn("minio bucket ensure at init failed")
		}
	}
	return w
}

func (w *minioWriter) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := w.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return w.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

func (w *minioWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	bucket := strings.TrimSpace(w.cfg.Storage.Minio.Bucket)
	if bucket == "" {
		return StoredObject{}, fmt.Errorf("minio bucket not configured")
	}
	if err := w.ensureBucket(ctx, bucket); err != nil {
		return StoredObject{}, fmt.Errorf("minio bucket ensure failed: %w", err)
	}
	objectName := path.Join(meta.objectPath(w.cfg.Backup.Prefix), meta.filename())
	data := []byte(content)
	_, err := w.client.PutObject(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("minio put failed: %w", err)
	}
	sum := sha256.Sum256(data)
	return StoredObject{
		URI:      fmt.Sprintf("minio://%s/%s", bucket, objectName),
		Size:     int64(len(data)),
		Checksum: "sha256:" + hex.EncodeToString(sum[:]),
	}, nil
}
