package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
)

const (
	// StateKey 本地状态文档的固定键
	StateKey = "cuida_senior_db_v1"
	// SyncIDKey 同步标识的固定键（独立于主文档存储）
	SyncIDKey = "cuida_senior_sync_id"
)

// LocalStore 设备本地存储（状态文档 + 同步标识）
// 纯 I/O，不含业务逻辑
type LocalStore struct {
	kv     KVStore
	logger *zap.Logger
}

// NewLocalStore 创建本地存储
func NewLocalStore(kv KVStore, logger *zap.Logger) *LocalStore {
	return &LocalStore{kv: kv, logger: logger}
}

// SaveState 全量写入状态文档（无 TTL）
func (l *LocalStore) SaveState(ctx context.Context, state models.AppState) error {
	data, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := l.kv.Set(ctx, StateKey, string(data), 0); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// LoadState 读取状态文档
// 缺失或损坏的文档按"无文档"处理返回 (nil, nil)，启动流程回退到默认骨架
func (l *LocalStore) LoadState(ctx context.Context) (*models.AppState, error) {
	raw, err := l.kv.Get(ctx, StateKey)
	if err != nil {
		if errors.Is(err, ErrKeyMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	state, err := models.DecodeState([]byte(raw))
	if err != nil {
		l.logger.Warn("Local state document is corrupt, treating as absent",
			zap.Error(err),
		)
		return nil, nil
	}
	return state, nil
}

// SaveSyncID 持久化同步标识
func (l *LocalStore) SaveSyncID(ctx context.Context, syncID string) error {
	if err := l.kv.Set(ctx, SyncIDKey, syncID, 0); err != nil {
		return fmt.Errorf("failed to save sync id: %w", err)
	}
	return nil
}

// LoadSyncID 读取同步标识；未设置时返回空串
func (l *LocalStore) LoadSyncID(ctx context.Context) (string, error) {
	val, err := l.kv.Get(ctx, SyncIDKey)
	if err != nil {
		if errors.Is(err, ErrKeyMiss) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load sync id: %w", err)
	}
	return val, nil
}
