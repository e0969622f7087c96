package display

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zombor/scanai/internal/scanning"
)

// Publisher publishes one MQTT message
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// StatusMessage is published retained on <base>/status
type StatusMessage struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OutcomeMessage is published on <base>/result and <base>/scanning
type OutcomeMessage struct {
	Attempt      uint64    `json:"attempt"`
	RequestID    string    `json:"request_id,omitempty"`
	State        string    `json:"state"` // scanning, success or failure
	Sum          *int      `json:"sum,omitempty"`
	Numbers      []int     `json:"numbers,omitempty"`
	DetectedText string    `json:"detected_text,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// queueSize is how many messages may wait for a slow broker before new ones are dropped
const queueSize = 64

type mqttMessage struct {
	topic    string
	retained bool
	payload  []byte
}

// MQTT mirrors status and outcomes to a broker for remote dashboards.
// Messages are handed to a single publisher goroutine, so a slow or absent
// broker never holds up the caller. Publish failures are logged only.
type MQTT struct {
	pub       Publisher
	baseTopic string
	now       func() time.Time

	mu     sync.Mutex
	closed bool
	queue  chan mqttMessage
	done   chan struct{}
}

// NewMQTT creates an MQTT surface publishing under baseTopic
func NewMQTT(pub Publisher, baseTopic string) *MQTT {
	m := &MQTT{
		pub:       pub,
		baseTopic: strings.TrimRight(baseTopic, "/"),
		now:       time.Now,
		queue:     make(chan mqttMessage, queueSize),
		done:      make(chan struct{}),
	}
	go m.loop()
	return m
}

// Close stops accepting messages and waits until the queued ones are published
func (m *MQTT) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	<-m.done
}

func (m *MQTT) loop() {
	defer close(m.done)
	for msg := range m.queue {
		if err := m.pub.Publish(msg.topic, 1, msg.retained, msg.payload); err != nil {
			slog.Warn("Failed to publish to MQTT", "topic", msg.topic, "error", err)
		}
	}
}

func (m *MQTT) ServerStatus(status scanning.ServerStatus, message string) {
	m.publish("status", true, StatusMessage{
		Status:    status.String(),
		Message:   message,
		Timestamp: m.now(),
	})
}

func (m *MQTT) Scanning(attempt uint64) {
	m.publish("scanning", false, OutcomeMessage{
		Attempt:   attempt,
		State:     "scanning",
		Timestamp: m.now(),
	})
}

func (m *MQTT) Outcome(o scanning.Outcome) {
	msg := OutcomeMessage{
		Attempt:   o.Attempt,
		RequestID: o.RequestID,
		Timestamp: m.now(),
	}
	if o.OK() {
		sum := o.Result.Sum
		msg.State = "success"
		msg.Sum = &sum
		msg.Numbers = o.Result.Numbers
		msg.DetectedText = o.Result.DetectedText
	} else {
		msg.State = "failure"
		msg.Reason = scanning.Reason(o.Err)
		if o.Err != nil {
			msg.Error = o.Err.Error()
		}
	}
	m.publish("result", false, msg)
}

func (m *MQTT) publish(suffix string, retained bool, v any) {
	topic := m.baseTopic + "/" + suffix
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Error encoding MQTT payload", "topic", topic, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- mqttMessage{topic: topic, retained: retained, payload: payload}:
	default:
		slog.Warn("MQTT queue full, dropping message", "topic", topic)
	}
}
