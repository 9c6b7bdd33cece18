// Package payment 支付网关HTTP客户端与签名实现
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	domain "github.com/xiebiao/eshop/internal/domain/payment"
)

// Signer HMAC-SHA256签名器
// 设计说明:
// 1. 规范化方式:字段按key字典序排列,拼接成key=value&key=value后做HMAC
// 2. 创建支付链接的请求签名与Webhook验签共用同一套规范化逻辑,
//    避免两处实现漂移
// 3. 比较一律用constant-time,防时序侧信道
type Signer struct {
	secret []byte
}

// NewSigner 创建签名器
func NewSigner(checksumSecret string) *Signer {
	return &Signer{secret: []byte(checksumSecret)}
}

// Sign 对字段集做规范化签名,返回十六进制串
func (s *Signer) Sign(fields map[string]string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonicalize(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook 校验回调签名,false表示事件应被丢弃
func (s *Signer) VerifyWebhook(payload *domain.WebhookPayload) bool {
	if payload == nil || payload.Signature == "" {
		return false
	}

	expected := s.Sign(webhookFields(payload.Data))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(payload.Signature)))
}

// canonicalize 按key字典序拼接为"k1=v1&k2=v2"
func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	return strings.Join(pairs, "&")
}

// webhookFields 提取参与验签的回调字段
func webhookFields(data domain.WebhookData) map[string]string {
	return map[string]string{
		"orderCode": fmt.Sprintf("%d", data.OrderCode),
		"amount":    fmt.Sprintf("%d", data.Amount),
		"reference": data.Reference,
		"code":      data.Code,
		"desc":      data.Desc,
	}
}
