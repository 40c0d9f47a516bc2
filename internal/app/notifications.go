package app

import (
	"sync"
	"time"

	"studytec-client/internal/domain"
)

// NotificationTTL is how long a notification stays active.
const NotificationTTL = 3 * time.Second

// scheduler runs f after d and returns a function that cancels it.
type scheduler func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type queuedNotification struct {
	domain.Notification
	stop func() bool
}

// NotificationQueue holds short-lived messages for the presentation layer.
// Every entry owns one scheduled removal, cancelled on dismissal.
type NotificationQueue struct {
	ttl      time.Duration
	now      func() time.Time
	schedule scheduler

	mu          sync.Mutex
	lastID      int64
	entries     []queuedNotification
	subscribers map[chan []domain.Notification]struct{}
	closed      bool
}

func NewNotificationQueue() *NotificationQueue {
	return newNotificationQueue(NotificationTTL, time.Now, afterFunc)
}

// NewNotificationQueueWithClock builds a queue with a custom TTL and clock.
func NewNotificationQueueWithClock(ttl time.Duration, now func() time.Time) *NotificationQueue {
	return newNotificationQueue(ttl, now, afterFunc)
}

func newNotificationQueue(ttl time.Duration, now func() time.Time, schedule scheduler) *NotificationQueue {
	return &NotificationQueue{
		ttl:         ttl,
		now:         now,
		schedule:    schedule,
		subscribers: make(map[chan []domain.Notification]struct{}),
	}
}

// Post appends a notification and schedules its removal. The returned id is
// strictly greater than every id handed out before.
func (q *NotificationQueue) Post(message string, severity domain.Severity) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	id := now.UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id

	entry := queuedNotification{Notification: domain.Notification{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
	}}
	if !q.closed {
		entry.stop = q.schedule(q.ttl, func() { q.expire(id) })
	}
	q.entries = append(q.entries, entry)
	q.broadcastLocked()
	return id
}

// Info posts an informational notification.
func (q *NotificationQueue) Info(message string) int64 {
	return q.Post(message, domain.SeverityInfo)
}

// Error posts an error notification.
func (q *NotificationQueue) Error(message string) int64 {
	return q.Post(message, domain.SeverityError)
}

// Dismiss removes a notification early. It reports whether id was active.
func (q *NotificationQueue) Dismiss(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id, true)
}

func (q *NotificationQueue) expire(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id, false)
}

func (q *NotificationQueue) removeLocked(id int64, cancel bool) bool {
	for i, entry := range q.entries {
		if entry.ID != id {
			continue
		}
		if cancel && entry.stop != nil {
			entry.stop()
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		q.broadcastLocked()
		return true
	}
	return false
}

// Active returns the live notifications in insertion order. Entries past
// their TTL are excluded even if their removal has not run yet.
func (q *NotificationQueue) Active() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *NotificationQueue) snapshotLocked() []domain.Notification {
	now := q.now()
	out := make([]domain.Notification, 0, len(q.entries))
	for _, entry := range q.entries {
		if now.Sub(entry.CreatedAt) >= q.ttl {
			continue
		}
		out = append(out, entry.Notification)
	}
	return out
}

// Subscribe returns a channel of active-set snapshots, starting with the
// current one. The caller must invoke the returned cancel function.
func (q *NotificationQueue) Subscribe() (<-chan []domain.Notification, func()) {
	ch := make(chan []domain.Notification, 8)

	q.mu.Lock()
	q.subscribers[ch] = struct{}{}
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	cancel := func() {
		q.mu.Lock()
		if _, ok := q.subscribers[ch]; ok {
			delete(q.subscribers, ch)
			close(ch)
		}
		q.mu.Unlock()
	}
	return ch, cancel
}

func (q *NotificationQueue) broadcastLocked() {
	snapshot := q.snapshotLocked()
	for ch := range q.subscribers {
		select {
		case ch <- snapshot:
		default:
			// slow reader: replace the oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Close cancels every pending removal and closes all subscriptions.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, entry := range q.entries {
		if entry.stop != nil {
			entry.stop()
		}
	}
	for ch := range q.subscribers {
		delete(q.subscribers, ch)
		close(ch)
	}
}
