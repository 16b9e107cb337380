package cache

// Node is an element of a recency List. The node stores its value so the
// owner can keep a *Node for O(1) touch and removal.
type Node[T any] struct {
	Value T
	prev  *Node[T]
	next  *Node[T]
	list  *List[T]
}

// Newer returns the next more recently used node, or nil.
func (n *Node[T]) Newer() *Node[T] {
	return n.prev
}

// List is a doubly-linked list for LRU eviction.
// The list is not thread-safe; callers must handle synchronization.
//
// The head is the most recently used, tail is least recently used.
type List[T any] struct {
	head *Node[T]
	tail *Node[T]
	len  int
}

// NewList creates an empty recency list.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// Len returns the number of nodes in the list.
func (l *List[T]) Len() int {
	return l.len
}

// PushFront adds a new node at the front (most recently used).
// Returns the created node for later access.
func (l *List[T]) PushFront(v T) *Node[T] {
	node := &Node[T]{Value: v, list: l}
	l.linkFront(node)
	return node
}

// MoveToFront moves an existing node to the front (most recently used).
func (l *List[T]) MoveToFront(node *Node[T]) {
	if node == nil || node.list != l || node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// Remove removes a node from the list. Removing a node twice is a no-op.
func (l *List[T]) Remove(node *Node[T]) {
	if node == nil || node.list != l {
		return
	}
	l.unlink(node)
	node.list = nil
}

// Oldest returns the least recently used node, or nil if the list is empty.
func (l *List[T]) Oldest() *Node[T] {
	return l.tail
}

// Clear removes all nodes from the list.
func (l *List[T]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.list = nil, nil, nil
		n = next
	}
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *List[T]) linkFront(node *Node[T]) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// unlink removes a node from the list and clears its pointers.
func (l *List[T]) unlink(node *Node[T]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}

	node.prev = nil
	node.next = nil
	l.len--
}
