// Package notify publishes fleet events after successful form actions.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType names what happened to the fleet.
type EventType string

const (
	EventVehicleCheckedOut    EventType = "vehicle.checked_out"
	EventVehicleReturned      EventType = "vehicle.returned"
	EventMaintenanceScheduled EventType = "maintenance.scheduled"
	EventMaintenanceCompleted EventType = "maintenance.completed"
)

// Event is the JSON payload published for each action.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	VehicleID     int       `json:"vehicle_id,omitempty"`
	MaintenanceID int       `json:"maintenance_id,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(t EventType, vehicleID int, summary string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		VehicleID:  vehicleID,
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers fleet events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

var ErrNotConnected = errors.New("mqtt client not connected")

const publishTimeout = 5 * time.Second

// MQTTPublisher publishes events as JSON to <prefix>/<event type>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTTPublisher wraps an already configured client.
func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimRight(prefix, "/"),
		qos:    1,
	}
}

// ConnectMQTT connects to broker. A random client id is used when clientID
// is empty so several dashboards can share a broker.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "vault-dashboard-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	log.WithFields(log.Fields{"broker": broker, "client_id": clientID}).Info("Connected to MQTT broker")
	return client, nil
}

// Topic returns the topic an event type is published on.
func (p *MQTTPublisher) Topic(t EventType) string {
	return p.prefix + "/" + string(t)
}

// Publish sends the event and waits for the broker to acknowledge it or the
// context to end.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	token := p.client.Publish(p.Topic(event.Type), p.qos, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: timed out", event.Type)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
