package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Additional-Code/invoicedesk/internal/messaging"
)

// PublishedMessage is one message captured by RecordingPublisher.
type PublishedMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Decode unmarshals the message value into dst.
func (m PublishedMessage) Decode(dst any) error {
	return json.Unmarshal(m.Value, dst)
}

// RecordingPublisher implements messaging.Client and keeps every message.
type RecordingPublisher struct {
	mu       sync.Mutex
	topic    string
	messages []PublishedMessage
}

// NewRecordingPublisher creates a publisher for topic.
func NewRecordingPublisher(topic string) *RecordingPublisher {
	return &RecordingPublisher{topic: topic}
}

func (p *RecordingPublisher) Publish(_ context.Context, key []byte, value []byte, headers ...messaging.Header) error {
	msg := PublishedMessage{
		Key:     string(key),
		Value:   append([]byte(nil), value...),
		Headers: make(map[string]string, len(headers)),
	}
	for _, h := range headers {
		msg.Headers[h.Key] = h.Value
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *RecordingPublisher) Topic() string { return p.topic }

// Messages returns a snapshot of everything published so far.
func (p *RecordingPublisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.messages...)
}
