package queue

import (
	"context"
	"encoding/json"

	"cert-verification/internal/config"
	"cert-verification/internal/model"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

// EnqueueVerification pushes one document job onto the verification queue.
// Never blocks on pipeline execution; the worker picks it up asynchronously.
func (p *Producer) EnqueueVerification(ctx context.Context, job model.VerificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.cfg.Redis.VerificationQueue, data).Err()
}
