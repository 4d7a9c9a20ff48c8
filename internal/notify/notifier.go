package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification 推送给照护圈的系统通知载荷
type Notification struct {
	EventID   string `json:"event_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// Notifier 系统通知通道（即发即忘）
// 发送失败只记日志，绝不向调用方抛错；没有可用通道时退化为仅应用内提醒
type Notifier interface {
	Notify(title, body string)
}

// MQTTConfig MQTT 通知通道配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTNotifier 基于 MQTT 的通知通道
// 照护圈成员的终端订阅同一主题接收提醒
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewMQTTNotifier 连接 broker 并创建通知通道
func NewMQTTNotifier(cfg MQTTConfig, logger *zap.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		logger: logger,
	}, nil
}

// Notify 发布一条通知
func (n *MQTTNotifier) Notify(title, body string) {
	payload, err := json.Marshal(Notification{
		EventID:   uuid.NewString(),
		Title:     title,
		Body:      body,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		n.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	token := n.client.Publish(n.topic, n.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("topic", n.topic),
			zap.Error(token.Error()),
		)
		return
	}

	n.logger.Debug("Published notification",
		zap.String("topic", n.topic),
		zap.String("title", title),
	)
}

// Close 断开 broker 连接
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}

// NopNotifier 空实现（未配置 broker 时使用）
type NopNotifier struct{}

func (NopNotifier) Notify(title, body string) {}
