package utils

import (
	"math/big"

	"github.com/dustin/go-humanize"
)

// FormatInt 千分位格式化
func FormatInt(n int64) string {
	return humanize.Comma(n)
}

// FormatDigits 对任意长度的纯数字串做千分位格式化
// 超出 int64 范围时走 big.Int，非法输入原样返回
func FormatDigits(digits string) string {
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return digits
	}
	return humanize.BigComma(n)
}

// IsASCIIDigits 非空且全部为 0-9
func IsASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Truncate 按字符截断，超出时追加省略号（只用于展示）
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
