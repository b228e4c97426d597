package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"recruit-agent-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// 会话产物类型
const (
	ArtifactKindResumeText = "resume_text" // 用户提交的简历原文
	ArtifactKindResponse   = "response"    // 脱敏后的最终回复
)

// MinIO 提供对象存储功能，用于归档会话产物
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: cfg.ArtifactsBucket,
		logger: logger,
	}

	if err := m.ensureBucketExists(m.bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保产物存储桶 %s 存在失败: %w", m.bucket, err)
	}

	// 设置生命周期规则
	if cfg.ArtifactExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), cfg.ArtifactExpireDays); err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created successfully.", bucketName)
	}
	return nil
}

// setupBucketLifecycle 设置产物过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, expireDays int) error {
	lcCfg := lifecycle.NewConfiguration()
	lcCfg.Rules = []lifecycle.Rule{
		{
			ID:     "expire-conversation-artifacts",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expireDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, m.bucket, lcCfg)
}

// artifactObjectKey 构建产物对象键: {sessionID}/{kind}/{timestamp}.txt
func artifactObjectKey(sessionID, kind string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s.txt", sessionID, kind, at.UTC().Format("20060102T150405.000000000"))
}

// UploadArtifact 归档一份会话产物文本，返回对象键
func (m *MinIO) UploadArtifact(ctx context.Context, sessionID, kind, text string) (string, error) {
	objectKey := artifactObjectKey(sessionID, kind, time.Now())
	reader := strings.NewReader(text)

	_, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, int64(len(text)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("上传会话产物 %s 失败: %w", objectKey, err)
	}
	return objectKey, nil
}

// GetArtifact 读取一份会话产物文本
func (m *MinIO) GetArtifact(ctx context.Context, objectKey string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("获取会话产物 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return "", fmt.Errorf("读取会话产物 %s 失败: %w", objectKey, err)
	}
	return buf.String(), nil
}

// DeleteArtifact 删除一份会话产物
func (m *MinIO) DeleteArtifact(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除会话产物 %s 失败: %w", objectKey, err)
	}
	return nil
}
