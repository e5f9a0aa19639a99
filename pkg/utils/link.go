package utils

import (
	"strings"

	"github.com/google/uuid"
)

// PurchaseLink 生成唯一的购买链接：<base>/<8位随机串>
func PurchaseLink(baseURL string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.TrimRight(baseURL, "/") + "/" + token
}
