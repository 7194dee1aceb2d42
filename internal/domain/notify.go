package domain

import "sync"

// Notification is one message shown to the operator.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// NotificationLog is a Notifier that keeps what it was told, for surfaces
// that return notifications in a response body instead of showing them.
type NotificationLog struct {
	mu    sync.Mutex
	items []Notification
}

func (n *NotificationLog) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Message: message, Severity: severity})
}

// Items returns the notifications received so far.
func (n *NotificationLog) Items() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}
