package activity

import (
	"errors"
	"log/slog"
	"sync"
)

// Kind distinguishes banner messages.
type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

// Message is one user-facing banner.
type Message struct {
	Kind Kind   `json:"kind"`
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
	Err  error  `json:"-"`
}

// coder is implemented by errors that carry a stable code.
type coder interface {
	ErrorCode() string
}

// recentLimit bounds the history kept for Recent.
const recentLimit = 32

// Banner is the error channel. It observes failures and success
// notifications and fans them out; it never alters control flow.
type Banner struct {
	mu     sync.Mutex
	subs   []bannerSub
	nextID int
	recent []Message
	logger *slog.Logger
}

type bannerSub struct {
	id int
	fn func(Message)
}

// NewBanner creates a banner channel logging through logger.
// A nil logger uses slog.Default.
func NewBanner(logger *slog.Logger) *Banner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Banner{logger: logger}
}

// Error publishes err. Nil errors are ignored.
func (b *Banner) Error(err error) {
	if err == nil {
		return
	}
	msg := Message{Kind: KindError, Text: err.Error(), Err: err}
	var c coder
	if errors.As(err, &c) {
		msg.Code = c.ErrorCode()
	}
	b.logger.Error("banner error", "code", msg.Code, "error", err)
	b.publish(msg)
}

// Success publishes a confirmation, e.g. after a save.
func (b *Banner) Success(text string) {
	b.logger.Info("banner success", "text", text)
	b.publish(Message{Kind: KindSuccess, Text: text})
}

// Subscribe registers fn for every future message.
func (b *Banner) Subscribe(fn func(Message)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, bannerSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent messages, oldest first.
func (b *Banner) Recent() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.recent))
	copy(out, b.recent)
	return out
}

func (b *Banner) publish(msg Message) {
	b.mu.Lock()
	b.recent = append(b.recent, msg)
	if len(b.recent) > recentLimit {
		b.recent = b.recent[len(b.recent)-recentLimit:]
	}
	subs := make([]bannerSub, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(msg)
	}
}
