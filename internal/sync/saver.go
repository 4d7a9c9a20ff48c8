package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
)

// Status 保存状态机
// idle → saving → saved → idle；saving 失败进入 error；
// syncing 是后台拉取套用时的短暂覆盖态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSaving  Status = "saving"
	StatusSaved   Status = "saved"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// LocalStore 保存调度器依赖的本地写入口
type LocalStore interface {
	SaveState(ctx context.Context, state models.AppState) error
}

// RemoteStore 保存调度器依赖的远程写入口
type RemoteStore interface {
	Upsert(ctx context.Context, syncID string, state models.AppState) error
}

// SyncIDSource 当前同步标识的来源；未设置时返回空串
type SyncIDSource interface {
	Current(ctx context.Context) string
}

// SaveScheduler 保存调度器
// 本地写立即且无条件；远程写经防抖合并，一个防抖窗口最多一次远程往返，
// 发出的总是窗口结束时刻的最新状态
type SaveScheduler struct {
	local  LocalStore
	remote RemoteStore
	syncID SyncIDSource
	logger *zap.Logger

	debounce     time.Duration
	savedDwell   time.Duration
	syncingDwell time.Duration

	mu              sync.Mutex
	timer           *time.Timer
	pending         *models.AppState
	status          Status
	gen             uint64
	lastFingerprint string
}

// SaverConfig 保存调度器时间参数
type SaverConfig struct {
	Debounce     time.Duration // 远程写防抖窗口
	SavedDwell   time.Duration // saved 状态展示时长
	SyncingDwell time.Duration // syncing 状态展示时长
}

// DefaultSaverConfig 默认时间参数（与既有客户端一致）
func DefaultSaverConfig() SaverConfig {
	return SaverConfig{
		Debounce:     800 * time.Millisecond,
		SavedDwell:   2 * time.Second,
		SyncingDwell: 1 * time.Second,
	}
}

// NewSaveScheduler 创建保存调度器
func NewSaveScheduler(local LocalStore, remote RemoteStore, syncID SyncIDSource, cfg SaverConfig, logger *zap.Logger) *SaveScheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultSaverConfig().Debounce
	}
	if cfg.SavedDwell <= 0 {
		cfg.SavedDwell = DefaultSaverConfig().SavedDwell
	}
	if cfg.SyncingDwell <= 0 {
		cfg.SyncingDwell = DefaultSaverConfig().SyncingDwell
	}
	return &SaveScheduler{
		local:        local,
		remote:       remote,
		syncID:       syncID,
		logger:       logger,
		debounce:     cfg.Debounce,
		savedDwell:   cfg.SavedDwell,
		syncingDwell: cfg.SyncingDwell,
		status:       StatusIdle,
	}
}

// Trigger 状态变更入口（Store 的变更回调）
// 先落本地，再取消并重新武装防抖定时器；窗口内的连续编辑合并为一次远程写
func (s *SaveScheduler) Trigger(state models.AppState) {
	ctx := context.Background()
	if err := s.local.SaveState(ctx, state); err != nil {
		// 本地写失败只记日志，不阻断调用方
		s.logger.Error("Failed to save state locally", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = state.Clone()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.setStatusLocked(StatusSaving)
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

// flush 防抖窗口结束：把最新的待发状态推到远端
func (s *SaveScheduler) flush() {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return
	}
	state := s.pending.Clone()
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	ctx := context.Background()
	syncID := s.syncID.Current(ctx)
	if syncID != "" {
		if err := s.remote.Upsert(ctx, syncID, *state); err != nil {
			// 不自动重试：下一次状态变更会重新武装定时器
			s.logger.Warn("Remote save failed, will retry on next change",
				zap.String("sync_id", syncID),
				zap.Error(err),
			)
			s.mu.Lock()
			s.setStatusLocked(StatusError)
			s.mu.Unlock()
			return
		}
	}

	s.mu.Lock()
	// 记录刚推送文档的指纹，避免后台拉取把自己的写入当成外部变更再导入
	s.lastFingerprint = state.Fingerprint()
	s.setStatusLocked(StatusSaved)
	s.scheduleIdleLocked(s.savedDwell)
	s.mu.Unlock()
}

// SaveNow 绕过防抖立即双写（登录等需要确定落盘的场景）
func (s *SaveScheduler) SaveNow(ctx context.Context, state models.AppState) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.mu.Unlock()

	if err := s.local.SaveState(ctx, state); err != nil {
		s.logger.Error("Failed to save state locally", zap.Error(err))
	}

	syncID := s.syncID.Current(ctx)
	if syncID != "" {
		if err := s.remote.Upsert(ctx, syncID, state); err != nil {
			s.mu.Lock()
			s.setStatusLocked(StatusError)
			s.mu.Unlock()
			return err
		}
	}

	s.mu.Lock()
	s.lastFingerprint = state.Fingerprint()
	s.setStatusLocked(StatusSaved)
	s.scheduleIdleLocked(s.savedDwell)
	s.mu.Unlock()
	return nil
}

// MarkSyncing 后台拉取套用后短暂显示 syncing 状态
func (s *SaveScheduler) MarkSyncing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(StatusSyncing)
	s.scheduleIdleLocked(s.syncingDwell)
}

// Status 当前保存状态
func (s *SaveScheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// InFlight 是否有保存在途（防抖窗口内或远程写进行中）
// 后台调和循环在此期间跳过本轮拉取
func (s *SaveScheduler) InFlight() bool {
	return s.Status() == StatusSaving
}

// LastFingerprint 最近一次已知远程文档的指纹
// 由成功的推送或成功套用的拉取写入
func (s *SaveScheduler) LastFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFingerprint
}

// SetLastFingerprint 调和循环套用拉取结果后更新指纹
func (s *SaveScheduler) SetLastFingerprint(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFingerprint = fp
}

// Stop 停止调度器（丢弃未触发的防抖定时器）
func (s *SaveScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

// setStatusLocked 切换状态并作废所有延迟的回 idle 转换
func (s *SaveScheduler) setStatusLocked(status Status) {
	s.status = status
	s.gen++
}

// scheduleIdleLocked 展示时长过后自动回到 idle
// 期间若状态被再次切换（gen 变化），该次回退作废
func (s *SaveScheduler) scheduleIdleLocked(after time.Duration) {
	gen := s.gen
	time.AfterFunc(after, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.status = StatusIdle
		}
	})
}
