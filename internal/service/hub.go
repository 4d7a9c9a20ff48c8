package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/config"
	"github.com/tochadigital/cuidasenior/internal/models"
	"github.com/tochadigital/cuidasenior/internal/notify"
	"github.com/tochadigital/cuidasenior/internal/repository"
	"github.com/tochadigital/cuidasenior/internal/scheduler"
	"github.com/tochadigital/cuidasenior/internal/store"
	statesync "github.com/tochadigital/cuidasenior/internal/sync"
	"github.com/tochadigital/cuidasenior/internal/syncid"
)

// HubService 照护协调中枢
// 持有唯一的状态容器，装配持久化网关、保存调度器、后台调和与提醒调度
type HubService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client

	store        *store.Store
	local        *repository.LocalStore
	remote       *repository.RemoteStore
	resolver     *syncid.Resolver
	saver        *statesync.SaveScheduler
	reconciler   *statesync.Reconciler
	reminder     *scheduler.Reminder
	notifier     notify.Notifier
	mqttNotifier *notify.MQTTNotifier
	analysis     *AnalysisClient
}

// NewHubService 创建并装配照护协调中枢
func NewHubService(cfg *config.Config, logger *zap.Logger) (*HubService, error) {
	db, err := repository.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	local := repository.NewLocalStore(repository.NewRedisKVStore(redisClient), logger)
	remote := repository.NewRemoteStore(db, logger)
	resolver := syncid.NewResolver(local, logger)
	st := store.New(logger)

	saver := statesync.NewSaveScheduler(local, remote, resolver, statesync.SaverConfig{
		Debounce:     time.Duration(cfg.Sync.DebounceMs) * time.Millisecond,
		SavedDwell:   time.Duration(cfg.Sync.SavedDwellMs) * time.Millisecond,
		SyncingDwell: time.Duration(cfg.Sync.SyncingDwellMs) * time.Millisecond,
	}, logger)

	// 每次状态变更同步触发保存调度
	st.OnChange(saver.Trigger)

	reconciler := statesync.NewReconciler(st, local, remote, resolver, saver,
		time.Duration(cfg.Sync.PollInterval)*time.Second, logger)

	// 通知通道：未配置 broker 时退化为仅应用内提醒
	var notifier notify.Notifier = notify.NopNotifier{}
	var mqttNotifier *notify.MQTTNotifier
	if cfg.MQTT.Broker != "" {
		mqttNotifier, err = notify.NewMQTTNotifier(notify.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, logger)
		if err != nil {
			// 通知是尽力而为的：连不上 broker 不影响中枢启动
			logger.Warn("MQTT notifier unavailable, falling back to in-app alerts only",
				zap.Error(err),
			)
		} else {
			notifier = mqttNotifier
		}
	}

	reminder := scheduler.NewReminder(st, notifier, scheduler.ReminderConfig{
		Interval:  time.Duration(cfg.Reminder.Interval) * time.Second,
		Cooldown:  time.Duration(cfg.Reminder.Cooldown) * time.Second,
		Lookahead: time.Duration(cfg.Reminder.Lookahead) * time.Minute,
	}, logger)

	return &HubService{
		config:       cfg,
		logger:       logger,
		db:           db,
		redisClient:  redisClient,
		store:        st,
		local:        local,
		remote:       remote,
		resolver:     resolver,
		saver:        saver,
		reconciler:   reconciler,
		reminder:     reminder,
		notifier:     notifier,
		mqttNotifier: mqttNotifier,
		analysis:     NewAnalysisClient(cfg.AI, logger),
	}, nil
}

// Start 启动中枢：加载本地状态（缺失则用默认骨架），起后台调和与提醒循环
// 阻塞直到 ctx 取消
func (h *HubService) Start(ctx context.Context) error {
	state, err := h.local.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local state: %w", err)
	}
	if state == nil {
		h.logger.Info("No local state found, starting from defaults")
		state = models.DefaultState()
	}
	h.store.Load(state)

	h.logger.Info("Hub started",
		zap.Bool("authenticated", h.store.Authenticated()),
	)

	go h.reconciler.Start(ctx)
	go h.reminder.Start(ctx)

	<-ctx.Done()
	return nil
}

// Login 照护人员登录
// 由老人证件号解析同步标识；远端已有文档则整体采用（本设备加入既有照护圈），
// 否则在本地文档上登记老人姓名和证件号；随后立即双写落盘
func (h *HubService) Login(ctx context.Context, user models.Caregiver, elderName, elderDocument string) error {
	h.saver.MarkSyncing()

	syncID, err := h.resolver.Resolve(ctx, elderDocument)
	if err != nil {
		return fmt.Errorf("failed to resolve sync id: %w", err)
	}

	remote, err := h.remote.Fetch(ctx, syncID)
	if err != nil {
		// 拉取失败按"远端无文档"处理，照常用本地数据登录
		h.logger.Warn("Failed to fetch remote state during login", zap.Error(err))
		remote = nil
	}

	var base *models.AppState
	if remote != nil {
		base = remote
		h.logger.Info("Adopted remote care-circle document",
			zap.String("sync_id", syncID),
			zap.String("elder", remote.Profile.Name),
		)
	} else {
		base = h.store.Snapshot()
		if base == nil {
			base = models.DefaultState()
		}
		if elderName != "" {
			base.Profile.Name = elderName
		}
		base.Profile.CPF = elderDocument
		h.logger.Info("Created new care-circle document",
			zap.String("sync_id", syncID),
		)
	}

	u := user
	base.CurrentUser = &u
	base.IsAuthenticated = true
	h.store.Load(base)

	if err := h.saver.SaveNow(ctx, *h.store.Snapshot()); err != nil {
		h.logger.Warn("Initial save after login failed", zap.Error(err))
	}
	return nil
}

// Logout 登出：只清会话字段，文档其余部分原样保留
func (h *HubService) Logout() {
	h.store.SetSession(nil)
}

// State 当前状态快照（视图层读取入口）
func (h *HubService) State() *models.AppState {
	return h.store.Snapshot()
}

// UpdateState 提交部分更新（视图层写入入口）
func (h *HubService) UpdateState(patch models.Patch) bool {
	return h.store.Update(patch)
}

// SaveStatus 保存状态指示
func (h *HubService) SaveStatus() statesync.Status {
	return h.saver.Status()
}

// ActiveAlert 当前在屏的用药提醒
func (h *HubService) ActiveAlert() *models.Medication {
	return h.reminder.ActiveAlert()
}

// AcknowledgeAlert 关闭在屏提醒；taken 为 true 时标记今日已服
func (h *HubService) AcknowledgeAlert(taken bool) {
	h.reminder.AcknowledgeAlert(taken)
}

// Suspend 应用退到后台：暂停后台调和
func (h *HubService) Suspend() {
	h.reconciler.Suspend()
}

// Resume 应用回到前台：恢复后台调和
func (h *HubService) Resume() {
	h.reconciler.Resume()
}

// Analysis 外部分析服务客户端
func (h *HubService) Analysis() *AnalysisClient {
	return h.analysis
}

// Stop 停止中枢并释放连接
func (h *HubService) Stop() {
	h.logger.Info("Stopping hub service")

	h.saver.Stop()

	if h.mqttNotifier != nil {
		h.mqttNotifier.Close()
	}
	if h.redisClient != nil {
		if err := h.redisClient.Close(); err != nil {
			h.logger.Error("Error closing redis connection", zap.Error(err))
		}
	}
	if h.db != nil {
		if err := h.db.Close(); err != nil {
			h.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	h.logger.Info("Hub service stopped")
}
