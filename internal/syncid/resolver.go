package syncid

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/repository"
)

// Prefix 同步标识的固定命名空间前缀
const Prefix = "CUIDA-"

// fallbackDigits 文档号没有任何数字时的兜底值
const fallbackDigits = "00000000000"

// Resolver 同步标识解析器
// 标识由老人证件号归一化（仅保留数字）后加前缀派生；一经计算即视为不可变，
// 后续远程操作读缓存而不是重新计算。两台设备对同一证件号解析出同一标识，
// 即被视为同一个照护圈，读写同一份远程文档
type Resolver struct {
	local  *repository.LocalStore
	logger *zap.Logger

	mu     sync.Mutex
	cached string
}

// NewResolver 创建解析器
func NewResolver(local *repository.LocalStore, logger *zap.Logger) *Resolver {
	return &Resolver{local: local, logger: logger}
}

// Normalize 归一化证件号：去掉所有非数字字符
func Normalize(documentNumber string) string {
	var b strings.Builder
	for _, r := range documentNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve 由证件号派生同步标识并持久化
func (r *Resolver) Resolve(ctx context.Context, documentNumber string) (string, error) {
	digits := Normalize(documentNumber)
	if digits == "" {
		digits = fallbackDigits
	}
	syncID := Prefix + digits

	if err := r.local.SaveSyncID(ctx, syncID); err != nil {
		return "", fmt.Errorf("failed to persist sync id: %w", err)
	}

	r.mu.Lock()
	r.cached = syncID
	r.mu.Unlock()

	r.logger.Info("Resolved sync id",
		zap.String("sync_id", syncID),
	)
	return syncID, nil
}

// Current 返回当前同步标识
// 优先取内存缓存，其次取本地持久化的值；未设置时返回空串
func (r *Resolver) Current(ctx context.Context) string {
	r.mu.Lock()
	if r.cached != "" {
		cached := r.cached
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	syncID, err := r.local.LoadSyncID(ctx)
	if err != nil {
		r.logger.Warn("Failed to load sync id", zap.Error(err))
		return ""
	}
	if syncID != "" {
		r.mu.Lock()
		r.cached = syncID
		r.mu.Unlock()
	}
	return syncID
}
