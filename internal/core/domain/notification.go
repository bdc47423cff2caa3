package domain

import (
	"sync"
	"time"
)

type NotificationStatus string

const (
	NotificationInfo    NotificationStatus = "info"
	NotificationSuccess NotificationStatus = "success"
	NotificationWarning NotificationStatus = "warning"
	NotificationError   NotificationStatus = "error"
)

// Notification is one lifecycle event emitted during a training run: backup
// taken, version kept or rejected, rollback performed, trainer failure.
type Notification struct {
	ModelName string             `json:"modelName"`
	Message   string             `json:"message"`
	Status    NotificationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NotificationLog is an append-only, concurrency-safe collection of
// notifications. Jobs running in parallel append to the same log.
type NotificationLog struct {
	mu      sync.Mutex
	entries []Notification
}

func NewNotificationLog() *NotificationLog {
	return &NotificationLog{}
}

func (l *NotificationLog) Append(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, n)
}

// Snapshot returns a copy of the entries recorded so far.
func (l *NotificationLog) Snapshot() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *NotificationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
