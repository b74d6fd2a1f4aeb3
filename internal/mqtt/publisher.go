package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"pv-configurator/internal/sysconfig"
)

const publishTimeout = 5 * time.Second

// Publisher announces stored configurations on
// <prefix>/projects/<project id>/configuration as retained JSON. A disabled
// publisher accepts every call and does nothing.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

// ConfigurationEvent is the payload published for a stored configuration.
type ConfigurationEvent struct {
	ProjectID       string                   `json:"project_id"`
	ConfigurationID string                   `json:"configuration_id"`
	Status          string                   `json:"validation_status"`
	Messages        []string                 `json:"messages"`
	Configuration   *sysconfig.Configuration `json:"configuration"`
	PublishedAt     time.Time                `json:"published_at"`
}

// NewDisabledPublisher returns a publisher that drops every event.
func NewDisabledPublisher() *Publisher {
	return &Publisher{enabled: false}
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return NewDisabledPublisher(), nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			slog.Info("MQTT connected", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

func (p *Publisher) Topic(projectID string) string {
	return fmt.Sprintf("%s/projects/%s/configuration", p.topicPrefix, projectID)
}

// ConfigurationChanged implements sysconfig.Notifier.
func (p *Publisher) ConfigurationChanged(c *sysconfig.Configuration) error {
	if !p.enabled || c == nil {
		return nil
	}

	payload, err := json.Marshal(NewConfigurationEvent(c, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal configuration event: %w", err)
	}

	topic := p.Topic(c.ProjectID.String())
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	slog.Debug("Configuration published", "topic", topic, "status", c.ValidationStatus)
	return nil
}

func NewConfigurationEvent(c *sysconfig.Configuration, at time.Time) ConfigurationEvent {
	messages := make([]string, 0, len(c.ValidationReasons))
	for _, r := range c.ValidationReasons {
		messages = append(messages, r.Message)
	}
	return ConfigurationEvent{
		ProjectID:       c.ProjectID.String(),
		ConfigurationID: c.ID.String(),
		Status:          string(c.ValidationStatus),
		Messages:        messages,
		Configuration:   c,
		PublishedAt:     at,
	}
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
