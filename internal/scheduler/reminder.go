package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
	"github.com/tochadigital/cuidasenior/internal/notify"
	"github.com/tochadigital/cuidasenior/internal/store"
)

// 预约时间字段的候选格式（旧文档可能不带秒或时区）
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Reminder 提醒调度器
// 固定间隔扫描状态：到点未服的药、一小时内的预约；
// 命中的变更走 Store.Update，和普通编辑一样进入保存流水线
type Reminder struct {
	store    *store.Store
	notifier notify.Notifier
	logger   *zap.Logger

	interval  time.Duration
	cooldown  time.Duration
	lookahead time.Duration
	nowFn     func() time.Time

	mu            sync.Mutex
	activeAlertID string
}

// ReminderConfig 提醒调度器参数
type ReminderConfig struct {
	Interval  time.Duration // 扫描间隔
	Cooldown  time.Duration // 同一药品重复提醒的最小间隔
	Lookahead time.Duration // 预约提前提醒窗口
}

// DefaultReminderConfig 默认参数
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval:  10 * time.Second,
		Cooldown:  60 * time.Second,
		Lookahead: 60 * time.Minute,
	}
}

// NewReminder 创建提醒调度器
func NewReminder(st *store.Store, notifier notify.Notifier, cfg ReminderConfig, logger *zap.Logger) *Reminder {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReminderConfig().Interval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultReminderConfig().Cooldown
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultReminderConfig().Lookahead
	}
	return &Reminder{
		store:     st,
		notifier:  notifier,
		logger:    logger,
		interval:  cfg.Interval,
		cooldown:  cfg.Cooldown,
		lookahead: cfg.Lookahead,
		nowFn:     time.Now,
	}
}

// Start 启动调度（阻塞直到 ctx 取消）
func (r *Reminder) Start(ctx context.Context) {
	r.logger.Info("Starting reminder scheduler",
		zap.Duration("interval", r.interval),
		zap.Duration("cooldown", r.cooldown),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick 执行一轮扫描
// 扫描粒度粗于分钟边界，同一分钟内可能命中多次；
// 去重靠 lastNotified 冷却时间，不是精确一次的调度
func (r *Reminder) Tick() {
	state := r.store.Snapshot()
	if state == nil || !state.IsAuthenticated {
		return
	}

	now := r.nowFn()
	r.checkMedications(state, now)
	r.checkAppointments(state, now)
}

// checkMedications 到点且未服用且冷却已过的药触发提醒
func (r *Reminder) checkMedications(state *models.AppState, now time.Time) {
	timeStr := now.Format("15:04")
	meds := state.Medications
	changed := false

	for i := range meds {
		m := &meds[i]
		if m.Time != timeStr || m.TakenToday {
			continue
		}
		if !r.cooldownElapsed(m.LastNotified, now) {
			continue
		}

		r.surfaceAlert(m.ID)
		r.notifier.Notify("Hora de "+m.Name, "Dose: "+m.Dosage)

		m.LastNotified = now.Format(time.RFC3339)
		changed = true

		r.logger.Info("Medication due",
			zap.String("medication_id", m.ID),
			zap.String("name", m.Name),
			zap.String("time", m.Time),
		)
	}

	if changed {
		r.store.Update(models.Patch{Medications: &meds})
	}
}

// checkAppointments 一小时内开始且尚未通知过的预约触发通知
// notified 只从 false 翻到 true，调度器自身永不复位
func (r *Reminder) checkAppointments(state *models.AppState, now time.Time) {
	appts := state.Appointments
	changed := false

	for i := range appts {
		a := &appts[i]
		if !a.Notify || a.Notified {
			continue
		}

		at, ok := parseDatetime(a.Datetime, now.Location())
		if !ok {
			continue
		}
		until := at.Sub(now)
		if until < 0 || until > r.lookahead {
			continue
		}

		r.notifier.Notify("Consulta em breve: "+a.Specialty, a.Address)
		a.Notified = true
		changed = true

		r.logger.Info("Appointment due soon",
			zap.String("appointment_id", a.ID),
			zap.String("specialty", a.Specialty),
			zap.Duration("until", until),
		)
	}

	if changed {
		r.store.Update(models.Patch{Appointments: &appts})
	}
}

// cooldownElapsed lastNotified 缺失、无法解析或早于冷却窗口都算已过
func (r *Reminder) cooldownElapsed(lastNotified string, now time.Time) bool {
	if lastNotified == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, lastNotified)
	if err != nil {
		return true
	}
	return now.Sub(last) > r.cooldown
}

// surfaceAlert 申请弹出应用内提醒
// 同一时刻最多一条在屏提醒：已有提醒在屏时，新到期的药不抢占显示
func (r *Reminder) surfaceAlert(medicationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeAlertID == "" {
		r.activeAlertID = medicationID
	}
}

// ActiveAlert 当前在屏提醒对应的药品；没有时返回 nil
func (r *Reminder) ActiveAlert() *models.Medication {
	r.mu.Lock()
	id := r.activeAlertID
	r.mu.Unlock()
	if id == "" {
		return nil
	}

	state := r.store.Snapshot()
	if state == nil {
		return nil
	}
	for i := range state.Medications {
		if state.Medications[i].ID == id {
			med := state.Medications[i]
			return &med
		}
	}
	return nil
}

// AcknowledgeAlert 关闭在屏提醒
// taken 为 true 时把该药标记为今日已服，变更照常进入保存流水线
func (r *Reminder) AcknowledgeAlert(taken bool) {
	r.mu.Lock()
	id := r.activeAlertID
	r.activeAlertID = ""
	r.mu.Unlock()

	if !taken || id == "" {
		return
	}

	state := r.store.Snapshot()
	if state == nil {
		return
	}
	meds := state.Medications
	for i := range meds {
		if meds[i].ID == id {
			meds[i].TakenToday = true
		}
	}
	r.store.Update(models.Patch{Medications: &meds})
}

func parseDatetime(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
