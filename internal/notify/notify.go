package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProcessingNotifyMessage 是处理结果的统一通知协议（经 Redis Pub/Sub 转发给前端）。
// 注意：字段名与前端解析保持一致。
type ProcessingNotifyMessage struct {
	Status        string `json:"status"`
	DocumentID    uint   `json:"document_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 将处理通知发布到 Owner 专属频道。
type Publisher struct {
	redisClient *redis.Client
}

// NewPublisher 构造 Publisher。
func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redisClient: redisClient}
}

// Channel 返回 Owner 的通知频道名。
func Channel(ownerID uint) string {
	return fmt.Sprintf("user_notify:%d", ownerID)
}

// PublishProcessing 发布一条处理通知。
func (p *Publisher) PublishProcessing(ctx context.Context, ownerID uint, msg ProcessingNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(ownerID)
	if err := p.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
