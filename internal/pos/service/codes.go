package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 编码前缀
const (
	prefixOrder     = "SO"
	prefixInvoice   = "INV"
	prefixProduct   = "PRD"
	prefixSupplier  = "SUP"
	prefixWarehouse = "WH"
	prefixCustomer  = "CUS"
)

// newCode 生成业务编码，如 SO-20240101-1A2B3C4D
func newCode(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), suffix)
}
