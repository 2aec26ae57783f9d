package config

import (
	"sync"
)

var (
	minioOnce   sync.Once
	minioConfig *MinioConfig
)

type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadEnv()

		minioConfig = &MinioConfig{
			Endpoint:   getenv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:  getenv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:  getenv("MINIO_SECRET_KEY", "minioadmin"),
			BucketName: getenv("MINIO_BUCKET_NAME", "file-processor"),
			UseSSL:     getenv("MINIO_USE_SSL", "false") == "true",
		}
	})
	return minioConfig
}
