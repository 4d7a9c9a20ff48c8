package sync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
	"github.com/tochadigital/cuidasenior/internal/store"
)

// RemoteFetcher 调和循环依赖的远程读入口
type RemoteFetcher interface {
	Fetch(ctx context.Context, syncID string) (*models.AppState, error)
}

// Reconciler 后台调和循环
// 固定间隔拉取远程文档，指纹比较识别真正的外部变更，
// 合并时保留本地会话身份；失败只记日志，下一轮照常重试，不做退避
type Reconciler struct {
	store  *store.Store
	local  LocalStore
	remote RemoteFetcher
	syncID SyncIDSource
	saver  *SaveScheduler
	logger *zap.Logger

	interval  time.Duration
	suspended atomic.Bool
}

// NewReconciler 创建调和循环
func NewReconciler(st *store.Store, local LocalStore, remote RemoteFetcher, syncID SyncIDSource, saver *SaveScheduler, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Reconciler{
		store:    st,
		local:    local,
		remote:   remote,
		syncID:   syncID,
		saver:    saver,
		logger:   logger,
		interval: interval,
	}
}

// Start 启动轮询（阻塞直到 ctx 取消）
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting background reconciliation",
		zap.Duration("interval", r.interval),
	)

	// 启动即拉一次
	r.Tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Background reconciliation stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Suspend 暂停轮询（对应前台应用退到后台）
func (r *Reconciler) Suspend() {
	r.suspended.Store(true)
}

// Resume 恢复轮询
func (r *Reconciler) Resume() {
	r.suspended.Store(false)
}

// Tick 执行一轮调和
// 未认证、已暂停或有保存在途时跳过，避免与保存调度器竞争
func (r *Reconciler) Tick(ctx context.Context) {
	if r.suspended.Load() {
		return
	}
	if !r.store.Authenticated() {
		return
	}
	if r.saver.InFlight() {
		return
	}

	syncID := r.syncID.Current(ctx)
	if syncID == "" {
		return
	}

	remote, err := r.remote.Fetch(ctx, syncID)
	if err != nil {
		r.logger.Debug("Background fetch failed, will retry next tick",
			zap.Error(err),
		)
		return
	}
	if remote == nil {
		return
	}

	// 指纹相同说明是自己刚推上去的文档（或没有外部变更），不导入
	fingerprint := remote.Fingerprint()
	if fingerprint == r.saver.LastFingerprint() {
		return
	}
	r.saver.SetLastFingerprint(fingerprint)

	merged := r.store.MergeRemote(remote)
	// 只落本地，不回推远端，避免两台设备互相乒乓
	if err := r.local.SaveState(ctx, *merged); err != nil {
		r.logger.Error("Failed to persist merged state locally", zap.Error(err))
	}
	r.saver.MarkSyncing()

	r.logger.Info("Applied remote changes",
		zap.String("sync_id", syncID),
	)
}
