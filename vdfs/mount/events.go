package mount

import (
	"sync"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/items"
)

// EventKind identifies a change notification.
type EventKind int

const (
	// ItemAdded is emitted for every folder and document a rebuild discovers.
	ItemAdded EventKind = iota
	// ItemModified is emitted when a document's content changes.
	ItemModified
)

func (k EventKind) String() string {
	switch k {
	case ItemAdded:
		return "added"
	case ItemModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is one change notification.
type Event struct {
	Kind EventKind
	Item items.Item
}

// Listener receives change notifications.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// broadcaster fans events out to listeners in subscription order.
type broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func (b *broadcaster) subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *broadcaster) emit(ev Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.fn(ev)
	}
}

func (b *broadcaster) reset() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}
