package mqttsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/ingest"
)

const (
	connectTimeout = 10 * time.Second
	subscribeQoS   = 1
)

// Source subscribes to an MQTT topic carrying JSON readings and feeds them
// into the ingestion gateway. Edge collectors that buffer readings locally
// publish here instead of calling the HTTP API.
type Source struct {
	cfg    config.MQTTConfig
	gw     *ingest.Gateway
	client mqtt.Client
}

// New creates a Source. Run must be called to connect and subscribe.
func New(cfg config.MQTTConfig, gw *ingest.Gateway) *Source {
	return &Source{cfg: cfg, gw: gw}
}

// Run connects to the broker, subscribes, and blocks until ctx is cancelled.
// Rejected readings are logged and dropped — MQTT has no per-message reply
// channel to surface them on.
func (s *Source) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		err := token.Error()
		if err == nil {
			err = errors.New("connect timed out")
		}
		return fmt.Errorf("mqttsource: connect %q: %w", s.cfg.BrokerURL, err)
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(ctx, msg.Topic(), msg.Payload())
	}
	if token := s.client.Subscribe(s.cfg.Topic, subscribeQoS, handler); !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		err := token.Error()
		if err == nil {
			err = errors.New("subscribe timed out")
		}
		return fmt.Errorf("mqttsource: subscribe %q: %w", s.cfg.Topic, err)
	}

	slog.Info("mqttsource: subscribed", "broker", s.cfg.BrokerURL, "topic", s.cfg.Topic)
	<-ctx.Done()
	s.client.Disconnect(250)
	return nil
}

// handle decodes one message as a reading and ingests it.
func (s *Source) handle(ctx context.Context, topic string, payload []byte) {
	var in ingest.ReadingInput
	if err := json.Unmarshal(payload, &in); err != nil {
		slog.Warn("mqttsource: discarding unparsable message", "topic", topic, "err", err)
		return
	}

	if _, err := s.gw.Ingest(ctx, in); err != nil {
		slog.Warn("mqttsource: reading rejected",
			"topic", topic, "device_id", in.DeviceID, "err", err)
	}
}
