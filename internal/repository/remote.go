package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
)

// RemoteStore 共享远程存储（care_sync 表，按同步标识寻址）
// 每个照护圈一行：sync_id 主键 + 全量 data 文档 + 服务端 updated_at
type RemoteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRemoteStore 创建远程存储
func NewRemoteStore(db *sql.DB, logger *zap.Logger) *RemoteStore {
	return &RemoteStore{db: db, logger: logger}
}

// Upsert 按同步标识整行覆盖写入
// 冲突策略是全文档替换（最后写入者赢）；并发编辑的细粒度合并是已知的未解决缺口
func (r *RemoteStore) Upsert(ctx context.Context, syncID string, state models.AppState) error {
	if syncID == "" {
		return fmt.Errorf("sync id is required")
	}

	data, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO care_sync (sync_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (sync_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, syncID, data); err != nil {
		return fmt.Errorf("failed to upsert care_sync row: %w", err)
	}

	r.logger.Debug("Upserted remote state",
		zap.String("sync_id", syncID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Fetch 按同步标识读取文档
// 不存在、标识为空或文档损坏都按"无文档"处理返回 (nil, nil)
func (r *RemoteStore) Fetch(ctx context.Context, syncID string) (*models.AppState, error) {
	if syncID == "" {
		return nil, nil
	}

	var raw []byte
	query := `SELECT data FROM care_sync WHERE sync_id = $1`
	err := r.db.QueryRowContext(ctx, query, syncID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch care_sync row: %w", err)
	}

	state, err := models.DecodeState(raw)
	if err != nil {
		r.logger.Warn("Remote state document is corrupt, treating as absent",
			zap.String("sync_id", syncID),
			zap.Error(err),
		)
		return nil, nil
	}
	return state, nil
}
