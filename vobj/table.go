package vobj

import (
	"sync"

	"go.uber.org/zap"
)

// Handle is an opaque reference to an object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for object lifecycle notifications.
type EventType uint8

const (
	EventInserted EventType = iota
	EventDropped
	EventLeaked
)

// Event represents an object lifecycle event.
type Event struct {
	Object *Object
	TypeID string
	Handle Handle
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// Table tracks live objects by handle so a host can hand out stable
// references instead of raw values. Remove drops the object; Close drops
// every survivor and logs each one as a leak.
type Table struct {
	entries   []tableEntry
	freeList  []Handle
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type tableEntry struct {
	obj   *Object
	valid bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]tableEntry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Insert adds an object and returns its handle. A closed table returns 0.
func (t *Table) Insert(obj *Object) Handle {
	if obj == nil {
		return 0
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}

	e := tableEntry{obj: obj, valid: true}
	var handle Handle
	if len(t.freeList) > 0 {
		handle = t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
	} else {
		t.entries = append(t.entries, e)
		handle = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventInserted, Handle: handle, TypeID: obj.TypeID(), Object: obj})
	return handle
}

// Get retrieves an object by handle.
func (t *Table) Get(handle Handle) (*Object, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return nil, false
	}
	e := t.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e.obj, true
}

// GetTyped retrieves an object only if its table identity matches.
func (t *Table) GetTyped(handle Handle, typeID string) (*Object, bool) {
	obj, ok := t.Get(handle)
	if !ok || obj.TypeID() != typeID {
		return nil, false
	}
	return obj, true
}

// Remove drops the object behind the handle and releases the slot. The drop
// error, if any, is returned; the slot is released either way.
func (t *Table) Remove(handle Handle) error {
	obj, ok := t.take(handle)
	if !ok {
		return nil
	}

	err := obj.Drop()
	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: obj.TypeID(), Object: obj})
	return err
}

func (t *Table) take(handle Handle) (*Object, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid {
		return nil, false
	}

	obj := e.obj
	e.valid = false
	e.obj = nil
	t.freeList = append(t.freeList, handle)
	return obj, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Close drops every remaining object, logs each as a leak, and stops
// accepting operations. Objects still in the table at close were never
// released by their owner.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var leaked []struct {
		obj    *Object
		handle Handle
	}
	for i := range t.entries {
		if t.entries[i].valid {
			leaked = append(leaked, struct {
				obj    *Object
				handle Handle
			}{t.entries[i].obj, Handle(i + 1)})
			t.entries[i].valid = false
			t.entries[i].obj = nil
		}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	log := Logger()
	for _, l := range leaked {
		log.Warn("object leaked at table close",
			zap.Uint32("handle", uint32(l.handle)),
			zap.String("type_id", l.obj.TypeID()))
		t.notify(Event{Type: EventLeaked, Handle: l.handle, TypeID: l.obj.TypeID(), Object: l.obj})
		if err := l.obj.Drop(); err != nil {
			log.Warn("drop failed during table close",
				zap.Uint32("handle", uint32(l.handle)),
				zap.Error(err))
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnObjectEvent(e)
	}
}
