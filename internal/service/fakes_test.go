package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/adapter/memory"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/port/messagequeue"
)

// completerCall is one recorded Generate or Classify invocation.
type completerCall struct {
	System string
	User   string
	Extra  []string
}

// scriptedCompleter is a deterministic llm.Completer.
type scriptedCompleter struct {
	mu sync.Mutex

	classify func(prompt, message string) (string, error)
	// replies are returned by Generate in order; once exhausted, Generate
	// returns defaultReply.
	replies      []string
	defaultReply string
	generateErr  error

	classifyCalls []completerCall
	generateCalls []completerCall
}

func (c *scriptedCompleter) Classify(_ context.Context, prompt, message string) (string, error) {
	c.mu.Lock()
	c.classifyCalls = append(c.classifyCalls, completerCall{System: prompt, User: message})
	fn := c.classify
	c.mu.Unlock()
	if fn == nil {
		return "order", nil
	}
	return fn(prompt, message)
}

func (c *scriptedCompleter) Generate(_ context.Context, systemPrompt, userMessage string, extra ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generateCalls = append(c.generateCalls, completerCall{System: systemPrompt, User: userMessage, Extra: extra})
	if c.generateErr != nil {
		return "", c.generateErr
	}
	if len(c.replies) > 0 {
		r := c.replies[0]
		c.replies = c.replies[1:]
		return r, nil
	}
	if c.defaultReply != "" {
		return c.defaultReply, nil
	}
	return "generated reply", nil
}

func (c *scriptedCompleter) generated() []completerCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]completerCall(nil), c.generateCalls...)
}

// classifyAs returns a classify func that always answers label.
func classifyAs(label string) func(string, string) (string, error) {
	return func(string, string) (string, error) { return label, nil }
}

// recordingBroadcaster records BroadcastEvent calls.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (b *recordingBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	b.data = append(b.data, payload)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

type publishedMsg struct {
	Subject string
	Data    []byte
}

// memQueue is an in-process messagequeue.Queue.
type memQueue struct {
	mu        sync.Mutex
	published []publishedMsg
	handlers  map[string]messagequeue.Handler
}

func (q *memQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, publishedMsg{Subject: subject, Data: data})
	return nil
}

func (q *memQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

func (q *memQueue) Drain() error      { return nil }
func (q *memQueue) Close() error      { return nil }
func (q *memQueue) IsConnected() bool { return true }

func (q *memQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.published))
	for _, m := range q.published {
		out = append(out, m.Subject)
	}
	return out
}

func (q *memQueue) handler(subject string) messagequeue.Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handlers[subject]
}

// failingStatusStore fails the next failures SetOrderStatus calls with err.
type failingStatusStore struct {
	*memory.Store

	mu       sync.Mutex
	failures int
	err      error
}

func (s *failingStatusStore) SetOrderStatus(ctx context.Context, id int64, status customer.OrderStatus) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return s.err
	}
	s.mu.Unlock()
	return s.Store.SetOrderStatus(ctx, id, status)
}

// newSeededStore returns a memory store holding the demo fixtures.
func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	if err := NewSeedService(store).Reset(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
