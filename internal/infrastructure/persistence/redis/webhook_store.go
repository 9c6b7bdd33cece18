package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

// WebhookStore 支付回调事件去重存储
// 设计说明:
// 1. 业务层的状态CAS已经保证重复回调是no-op,这里的SetNX只是短路:
//    见过的事件直接应答,省掉一次数据库往返
// 2. Key设计: webhook:event:{orderCode}:{reference}
// 3. TTL到期自动清理,Redis不可用时退化为纯业务层去重,不影响正确性
type WebhookStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWebhookStore 创建回调去重存储
func NewWebhookStore(client *redis.Client, ttl time.Duration) *WebhookStore {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &WebhookStore{client: client, ttl: ttl}
}

// MarkSeen 标记事件已处理,返回true表示首次见到
func (s *WebhookStore) MarkSeen(ctx context.Context, orderCode int64, reference string) (bool, error) {
	key := fmt.Sprintf("webhook:event:%d:%s", orderCode, reference)

	first, err := s.client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "记录回调事件失败")
	}
	return first, nil
}
