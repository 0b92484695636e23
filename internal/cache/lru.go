package cache

// list is the recency order of a Cache: head is the most recently used
// entry, tail the least. It is not thread-safe.
type list[K comparable, V any] struct {
	head, tail *entry[K, V]
}

func (l *list[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *list[K, V]) moveToFront(e *entry[K, V]) {
	if e == l.head {
		return
	}
	l.remove(e)
	l.pushFront(e)
}

// removeOldest unlinks and returns the tail. The list must not be empty.
func (l *list[K, V]) removeOldest() *entry[K, V] {
	e := l.tail
	l.remove(e)
	return e
}

func (l *list[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
