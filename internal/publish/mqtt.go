package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ghcodec-svr/internal/pipeline"
)

const publishTimeout = 5 * time.Second

// MQTT publica cada tracking en <topic>/<imei> con QoS 0.
type MQTT struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return newMQTT(client, topic), nil
}

func newMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{client: client, topic: strings.TrimSuffix(topic, "/")}
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Topic(imei string) string { return m.topic + "/" + imei }

func (m *MQTT) Publish(ctx context.Context, tr *pipeline.TrackingObject) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(tr.IMEI), 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish %s: timeout", m.Topic(tr.IMEI))
	}
	return token.Error()
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
