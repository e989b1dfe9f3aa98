package ariston

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/velishub/velishub/internal/config"
)

// statusPublisher mirrors heater snapshots to an MQTT broker as
// retained messages, one topic per gateway.
type statusPublisher struct {
	client mqtt.Client
	prefix string
}

func newStatusPublisher(cfg *config.MQTTConfig) (*statusPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(randomClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.PasswordFile != "" {
		data, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("read mqtt password file: %w", err)
		}
		opts.SetPassword(strings.TrimSpace(string(data)))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	prefix := strings.TrimRight(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "velishub"
	}

	return &statusPublisher{client: client, prefix: prefix}, nil
}

func (p *statusPublisher) publish(snapshot HeaterSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/ariston/%s/status", p.prefix, snapshot.GatewayID)
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *statusPublisher) close() {
	p.client.Disconnect(250)
}

func randomClientID() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return "velishub-" + base64.RawURLEncoding.EncodeToString(buf)
}
