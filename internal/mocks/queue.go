package mocks

import "sync"

// MockMessageQueue is a mock implementation of MessageQueue interface
type MockMessageQueue struct {
	PublishFunc   func(subject string, payload map[string]interface{}) error
	SubscribeFunc func(subject string, handler func(data []byte) error) error

	mu        sync.Mutex
	Published []PublishedEvent
}

// PublishedEvent captures one Publish call for assertions.
type PublishedEvent struct {
	Subject string
	Payload map[string]interface{}
}

func (m *MockMessageQueue) Publish(subject string, payload map[string]interface{}) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(subject, payload)
	}
	m.mu.Lock()
	m.Published = append(m.Published, PublishedEvent{Subject: subject, Payload: payload})
	m.mu.Unlock()
	return nil
}

func (m *MockMessageQueue) Subscribe(subject string, handler func(data []byte) error) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(subject, handler)
	}
	return nil
}

func (m *MockMessageQueue) Close() error { return nil }

// Events returns the subjects published so far.
func (m *MockMessageQueue) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	subjects := make([]string, len(m.Published))
	for i, e := range m.Published {
		subjects[i] = e.Subject
	}
	return subjects
}
