package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置（共享远程存储）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置（设备本地存储）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（照护圈通知通道；Broker 为空则禁用）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// AIConfig 外部分析服务配置（小票识别 / 健康洞察；APIKey 为空则禁用）
type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Config 照护协调中枢配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	AI       AIConfig

	// 状态同步参数
	Sync struct {
		DebounceMs     int // 远程写防抖窗口（毫秒），默认 800
		SavedDwellMs   int // saved 状态展示时长（毫秒），默认 2000
		SyncingDwellMs int // syncing 状态展示时长（毫秒），默认 1000
		PollInterval   int // 后台调和轮询间隔（秒），默认 5
	}

	// 提醒调度参数
	Reminder struct {
		Interval  int // 扫描间隔（秒），默认 10
		Cooldown  int // 同一药品提醒冷却（秒），默认 60
		Lookahead int // 预约提前提醒窗口（分钟），默认 60
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "cuidasenior")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 0)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 0)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "cuidasenior-hub")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "cuida/notifications")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.AI.BaseURL = getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com")
	cfg.AI.APIKey = getEnv("AI_API_KEY", "")
	cfg.AI.Model = getEnv("AI_MODEL", "gemini-3-flash-preview")

	cfg.Sync.DebounceMs = getEnvInt("SYNC_DEBOUNCE_MS", 800)
	cfg.Sync.SavedDwellMs = getEnvInt("SYNC_SAVED_DWELL_MS", 2000)
	cfg.Sync.SyncingDwellMs = getEnvInt("SYNC_SYNCING_DWELL_MS", 1000)
	cfg.Sync.PollInterval = getEnvInt("SYNC_POLL_INTERVAL", 5)

	cfg.Reminder.Interval = getEnvInt("REMINDER_INTERVAL", 10)
	cfg.Reminder.Cooldown = getEnvInt("REMINDER_COOLDOWN", 60)
	cfg.Reminder.Lookahead = getEnvInt("REMINDER_LOOKAHEAD", 60)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
