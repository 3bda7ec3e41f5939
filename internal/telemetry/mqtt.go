// Package telemetry mirrors pose submissions to an MQTT broker so external
// dashboards can follow a simulator run without touching the recording
// database.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/qashinka/PoseLockTool/internal/hostsim"
	"github.com/qashinka/PoseLockTool/internal/monitoring"
)

const defaultTopicPrefix = "poselock"

// Config describes the broker connection and topic layout.
type Config struct {
	// Broker is the MQTT endpoint, e.g. "tcp://localhost:1883".
	Broker string
	// ClientID identifies this publisher to the broker.
	ClientID string
	// TopicPrefix is prepended to every topic; poses are published to
	// <prefix>/pose/<serial>. Defaults to "poselock".
	TopicPrefix string
	// QoS for pose messages. Poses supersede each other every few
	// milliseconds, so 0 is the sensible setting.
	QoS byte
	// Retained marks each pose message as retained so late subscribers
	// immediately see the last known pose.
	Retained bool
}

// client is the slice of mqtt.Client the publisher consumes.
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher forwards pose submissions to MQTT topics.
type Publisher struct {
	client   client
	prefix   string
	qos      byte
	retained bool
	logf     func(format string, v ...interface{})
}

// NewPublisher connects to the broker and returns a ready publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)

	p := newPublisher(mqtt.NewClient(opts), cfg)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return p, nil
}

func newPublisher(c client, cfg Config) *Publisher {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &Publisher{
		client:   c,
		prefix:   prefix,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		logf:     monitoring.Prefixed("telemetry"),
	}
}

// Run publishes every submission from subs until the context is cancelled or
// the channel closes. Publish failures are logged and skipped; the stream
// carries the next pose a few milliseconds later anyway.
func (p *Publisher) Run(ctx context.Context, subs <-chan hostsim.Submission) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sub, ok := <-subs:
			if !ok {
				return nil
			}
			p.publish(sub)
		}
	}
}

func (p *Publisher) publish(sub hostsim.Submission) {
	payload, err := json.Marshal(sub)
	if err != nil {
		p.logf("marshal pose for %s: %v", sub.Serial, err)
		return
	}
	topic := fmt.Sprintf("%s/pose/%s", p.prefix, sub.Serial)
	if token := p.client.Publish(topic, p.qos, p.retained, payload); token.Wait() && token.Error() != nil {
		p.logf("publish %s: %v", topic, token.Error())
	}
}

// Close disconnects from the broker, allowing 250ms for in-flight messages.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
