package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Host       string `envconfig:"HOST"`                     // localhost:9000, пусто: выгрузка выключена
	AccessKey  string `envconfig:"ACCESS_KEY"`               // minioadmin
	SecretKey  string `envconfig:"SECRET_KEY"`               // minioadmin
	Bucket     string `envconfig:"BUCKET" default:"exports"` // exports
	UseSSL     bool   `envconfig:"USE_SSL" default:"false"`  // false для локальной разработки
	LinkTTLMin int    `envconfig:"LINK_TTL" default:"60"`    // срок жизни ссылки на выгрузку, минуты
}

func (c *Config) Enabled() bool {
	return c.Host != ""
}

func (c *Config) LinkTTL() time.Duration {
	if c.LinkTTLMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.LinkTTLMin) * time.Minute
}

// NewClient создаёт новый MinIO клиент
func (c *Config) NewClient() (*minio.Client, error) {
	client, err := minio.New(c.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	// Проверяем подключение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Проверяем существование bucket
	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", c.Bucket, err)
		}
	}

	return client, nil
}
