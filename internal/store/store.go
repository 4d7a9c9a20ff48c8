package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
)

// ChangeHook 状态变更回调（同步触发保存调度器）
// 在持锁状态下调用：回调顺序与变更套用顺序严格一致；
// 回调不得反过来调用 Store。载荷是变更后的快照，可安全跨 goroutine 使用
type ChangeHook func(state models.AppState)

// Store 应用状态的唯一持有者
// 状态未加载前为 nil；所有写入都经过这里串行化
type Store struct {
	mu     sync.Mutex
	state  *models.AppState
	onSave ChangeHook
	logger *zap.Logger
}

// New 创建状态容器
func New(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// OnChange 注册变更回调（装配期调用一次）
// Update / SetSession 成功后同步触发；MergeRemote 不触发，避免回推远端
func (s *Store) OnChange(hook ChangeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = hook
}

// Load 安装初始状态（启动时调用一次）
func (s *Store) Load(state *models.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.state.IsAuthenticated = s.state.CurrentUser != nil
}

// Snapshot 返回当前状态快照；未加载时返回 nil
func (s *Store) Snapshot() *models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update 套用部分更新并同步触发保存
// 状态未加载时静默忽略，返回 false
// 回调在锁内触发：并发 Update 的落盘顺序必须和套用顺序一致，
// 否则先套用的快照可能后落盘，把新状态盖掉
func (s *Store) Update(patch models.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		s.logger.Debug("Update ignored: state not loaded")
		return false
	}
	patch.Apply(s.state)
	if s.onSave != nil {
		s.onSave(*s.state.Clone())
	}
	return true
}

// SetSession 设置当前登录的照护人员并触发保存
// user 为 nil 即登出：只清会话字段，文档其余部分保持不变
func (s *Store) SetSession(user *models.Caregiver) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	if user != nil {
		u := *user
		s.state.CurrentUser = &u
	} else {
		s.state.CurrentUser = nil
	}
	s.state.IsAuthenticated = user != nil
	if s.onSave != nil {
		s.onSave(*s.state.Clone())
	}
	return true
}

// MergeRemote 用远程文档整体替换本地状态，但保留本地会话身份
// 不触发保存回调：远程合并由调用方仅做本地落盘，避免推拉乒乓
func (s *Store) MergeRemote(remote *models.AppState) *models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := remote.Clone()
	if s.state != nil {
		merged.CurrentUser = nil
		if s.state.CurrentUser != nil {
			user := *s.state.CurrentUser
			merged.CurrentUser = &user
		}
		merged.IsAuthenticated = merged.CurrentUser != nil
	}
	s.state = merged
	return merged.Clone()
}

// Authenticated 当前是否有活跃会话
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.IsAuthenticated
}
