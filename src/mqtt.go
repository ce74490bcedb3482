package picaprs

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DEFAULT_MQTT_TOPIC_PREFIX = "picaprs"

// mqttClient is the part of mqtt.Client used here.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher mirrors each successful transmission to an MQTT broker.
type MQTTPublisher struct {
	client mqttClient
	config MQTTConfig
}

// TransmitMessage is the JSON published for a transmission.
type TransmitMessage struct {
	Time        time.Time `json:"time"`
	Kind        string    `json:"kind"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Path        []string  `json:"path"`
	Info        string    `json:"info"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	AltitudeM   *float64  `json:"altitude_m,omitempty"`
}

func generateClientID() string {
	var b = make([]byte, 8)
	rand.Read(b) //nolint:errcheck
	return "picaprs_" + hex.EncodeToString(b)
}

// NewMQTTPublisher connects to the broker.  It returns nil, nil when disabled.
func NewMQTTPublisher(config MQTTConfig) (*MQTTPublisher, error) {
	if !config.Enabled {
		return nil, nil //nolint:nilnil
	}

	if config.TopicPrefix == "" {
		config.TopicPrefix = DEFAULT_MQTT_TOPIC_PREFIX
	}

	var opts = mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)

	if config.ClientID != "" {
		opts.SetClientID(config.ClientID)
	} else {
		opts.SetClientID(generateClientID())
	}

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "err", err)
	})

	var client = mqtt.NewClient(opts)

	// With connect retry the token only completes once connected.
	var token = client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		logger.Warn("MQTT broker not answering, still trying", "broker", config.Broker)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", config.Broker, token.Error())
	}

	return &MQTTPublisher{client: client, config: config}, nil
}

func transmitMessage(rec TransmitRecord) TransmitMessage {
	var msg = TransmitMessage{
		Time:        rec.Time,
		Kind:        rec.Packet.Kind,
		Source:      rec.Source.String(),
		Destination: rec.Packet.Dest.String(),
		Path:        []string{},
		Info:        trimCR(messageText(rec.Packet.Message)),
	}

	for _, r := range rec.Path {
		if !r.Call.IsBlank() {
			msg.Path = append(msg.Path, r.String())
		}
	}

	if gps := rec.Packet.Position; gps != nil && gps.HasFix() {
		var lat, lon = gps.LatDegrees(), gps.LonDegrees()
		var alt = float64(gps.Altitude) / 100
		msg.Lat, msg.Lon, msg.AltitudeM = &lat, &lon, &alt
	}

	return msg
}

// Topic is {prefix}/tx/{kind}.
func (p *MQTTPublisher) Topic(kind string) string {
	return strings.TrimSuffix(p.config.TopicPrefix, "/") + "/tx/" + kind
}

// Transmitted publishes rec if it went out.  Failures are only logged.
func (p *MQTTPublisher) Transmitted(rec TransmitRecord) {
	if rec.Err != nil {
		return
	}

	if err := p.Publish(rec); err != nil {
		logger.Warn("MQTT publish", "err", err)
	}
}

func (p *MQTTPublisher) Publish(rec TransmitRecord) error {
	var data, err = json.Marshal(transmitMessage(rec))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var token = p.client.Publish(p.Topic(rec.Packet.Kind), p.config.QoS, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timed out", p.Topic(rec.Packet.Kind))
	}

	return token.Error()
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
