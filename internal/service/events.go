package service

import "sync"

// EventKind says which part of the data changed.
type EventKind int

const (
	ProjectsChanged EventKind = iota
	LogsChanged
	AttachmentsChanged
)

func (k EventKind) String() string {
	switch k {
	case ProjectsChanged:
		return "projects_changed"
	case LogsChanged:
		return "logs_changed"
	case AttachmentsChanged:
		return "attachments_changed"
	default:
		return "unknown"
	}
}

// Event is published after a successful mutation. ProjectID is zero when the
// change is not tied to one project (a global attachment, for instance).
type Event struct {
	Kind      EventKind
	ProjectID int64
}

// Notifier fans events out to subscribers, synchronously and in
// subscription order. Handlers must not block.
type Notifier struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Event)
	order    []int
}

func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.handlers[id] = fn
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber. A nil Notifier drops it.
func (n *Notifier) Publish(ev Event) {
	if n == nil {
		return
	}

	// Copy under the lock so a handler may unsubscribe itself.
	n.mu.RLock()
	fns := make([]func(Event), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.handlers[id])
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
