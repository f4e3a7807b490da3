package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/metrics"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// InvoiceArchive 已提交发票的 MinIO 归档
//
// 归档在事务提交之后执行，失败只记录日志，不影响订单结果。
type InvoiceArchive struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewInvoiceArchive(client *minio.Client, bucket string, logger *zap.Logger) *InvoiceArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceArchive{client: client, bucket: bucket, logger: logger}
}

// invoiceDocument 归档文档
type invoiceDocument struct {
	Invoice *entity.Invoice `json:"invoice"`
	Order   *entity.Order   `json:"order"`
}

// ObjectName 发票归档对象路径
func ObjectName(inv *entity.Invoice) string {
	return fmt.Sprintf("invoices/%s/%s.json", inv.InvoiceDate.Format("2006/01"), inv.InvoiceCode)
}

// Put 上传发票文档，未配置 MinIO 时跳过
func (a *InvoiceArchive) Put(ctx context.Context, order *entity.Order, inv *entity.Invoice) {
	if a == nil || a.client == nil || inv == nil {
		return
	}
	data, err := json.Marshal(invoiceDocument{Invoice: inv, Order: order})
	if err != nil {
		metrics.ArchiveFailures.Inc()
		return
	}
	objectName := ObjectName(inv)
	_, err = a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		metrics.ArchiveFailures.Inc()
		a.logger.Warn("Invoice archive failed",
			zap.String("invoice_code", inv.InvoiceCode),
			zap.String("object", objectName),
			zap.Error(err))
		return
	}
	a.logger.Debug("Invoice archived", zap.String("object", objectName))
}
