package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ReceiptRepo реализует хранилище квитанций поверх MinIO.
type ReceiptRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewReceiptRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ReceiptRepo {
	return &ReceiptRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает квитанцию в MinIO и возвращает ключ объекта.
func (r *ReceiptRepo) Upload(ctx context.Context, receipt *usecase.Receipt) (string, error) {
	reader := bytes.NewReader(receipt.Data)

	info, err := r.mc.PutObject(ctx, r.cfg.BucketName, receipt.Key, reader, int64(len(receipt.Data)), minio.PutObjectOptions{
		ContentType: receipt.ContentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (r *ReceiptRepo) Delete(ctx context.Context, key string) error {
	if err := r.mc.RemoveObject(ctx, r.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
