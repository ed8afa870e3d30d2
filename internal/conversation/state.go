package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deliveryflow/agent/internal/domain"
)

const (
	stageKeyPrefix = "conv_stage:"
	stageTTL       = 24 * time.Hour
)

// StageStore tracks where each conversation is in the ordering flow.
type StageStore interface {
	// Stage returns the current stage for a conversation. A conversation
	// that has never been seen starts at StageGreeting.
	Stage(ctx context.Context, conversationID string) (domain.Stage, error)

	// SetStage records the stage for a conversation, refreshing its TTL.
	SetStage(ctx context.Context, conversationID string, stage domain.Stage) error
}

// RedisStageStore persists stages in Redis so the flow survives restarts
// and is shared across instances.
type RedisStageStore struct {
	client *redis.Client
}

func NewRedisStageStore(client *redis.Client) *RedisStageStore {
	return &RedisStageStore{client: client}
}

func (s *RedisStageStore) key(conversationID string) string {
	return stageKeyPrefix + conversationID
}

func (s *RedisStageStore) Stage(ctx context.Context, conversationID string) (domain.Stage, error) {
	val, err := s.client.Get(ctx, s.key(conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StageGreeting, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read conversation stage: %w", err)
	}

	stage := domain.Stage(val)
	if !stage.Valid() {
		return domain.StageGreeting, nil
	}
	return stage, nil
}

func (s *RedisStageStore) SetStage(ctx context.Context, conversationID string, stage domain.Stage) error {
	if err := s.client.Set(ctx, s.key(conversationID), string(stage), stageTTL).Err(); err != nil {
		return fmt.Errorf("failed to store conversation stage: %w", err)
	}
	return nil
}

// MemoryStageStore is the in-process fallback used when Redis is not
// configured, and in tests.
type MemoryStageStore struct {
	mu     sync.RWMutex
	stages map[string]domain.Stage
}

func NewMemoryStageStore() *MemoryStageStore {
	return &MemoryStageStore{stages: make(map[string]domain.Stage)}
}

func (s *MemoryStageStore) Stage(ctx context.Context, conversationID string) (domain.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if stage, ok := s.stages[conversationID]; ok {
		return stage, nil
	}
	return domain.StageGreeting, nil
}

func (s *MemoryStageStore) SetStage(ctx context.Context, conversationID string, stage domain.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[conversationID] = stage
	return nil
}

// Advance applies the classified action to the current stage and returns the
// new stage plus the possibly-damped action. A conversation cannot jump from
// greeting straight to completion: a complete signal seen that early is
// demoted to confirm_order so the customer confirms explicitly first.
func Advance(current domain.Stage, action domain.NextAction) (domain.Stage, domain.NextAction) {
	switch action {
	case domain.ActionComplete:
		if current == domain.StageGreeting {
			return domain.StageConfirming, domain.ActionConfirmOrder
		}
		return domain.StageCompleted, domain.ActionComplete
	case domain.ActionConfirmOrder:
		return domain.StageConfirming, action
	case domain.ActionSuggestUpsell:
		return domain.StageCollectingInfo, action
	default:
		if current == domain.StageGreeting {
			return domain.StageCollectingInfo, action
		}
		return current, action
	}
}
