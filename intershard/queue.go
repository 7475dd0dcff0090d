package intershard

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"pvn/config"
)

var (
	// ErrReplay is returned when a message's bytes were seen before.
	ErrReplay = errors.New("message replayed")

	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue full")
)

// Message is one cross-shard payload awaiting delivery.
type Message struct {
	FromShard uint32
	ToShard   uint32
	Payload   []byte
}

// encode produces the canonical bytes of a message, used both for the
// replay seen-set key and for the queue root commitment. The payload is
// length-prefixed so concatenated encodings cannot be ambiguous.
func (m Message) encode() []byte {
	buf := make([]byte, 12+len(m.Payload))
	binary.BigEndian.PutUint32(buf[0:4], m.FromShard)
	binary.BigEndian.PutUint32(buf[4:8], m.ToShard)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(m.Payload)))
	copy(buf[12:], m.Payload)
	return buf
}

// Queue is a bounded FIFO of inter-shard messages with replay
// protection. The seen-set is keyed by message bytes and survives
// dequeues, so a delivered message can never be enqueued again.
// Callers serialize access alongside the rest of the consensus state.
type Queue struct {
	capacity int
	messages []Message
	seen     map[string]struct{}
}

// NewQueue creates a queue holding at most capacity messages
// (config.MaxQueueMessages when capacity is 0).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = config.MaxQueueMessages
	}
	return &Queue{
		capacity: capacity,
		seen:     make(map[string]struct{}),
	}
}

// Enqueue appends a message, rejecting replays and overflow.
func (q *Queue) Enqueue(m Message) error {
	key := string(m.encode())
	if _, exists := q.seen[key]; exists {
		return ErrReplay
	}
	if len(q.messages) >= q.capacity {
		return ErrQueueFull
	}
	q.seen[key] = struct{}{}
	q.messages = append(q.messages, m)
	return nil
}

// Dequeue pops the oldest message. The replay guard keeps its entry.
func (q *Queue) Dequeue() (Message, bool) {
	if len(q.messages) == 0 {
		return Message{}, false
	}
	m := q.messages[0]
	q.messages = q.messages[1:]
	return m, true
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.messages)
}

// Root commits to the queue's current contents in order. Every honest
// node with the same queue state computes the identical root.
func (q *Queue) Root() [32]byte {
	hasher := sha256.New()
	for _, m := range q.messages {
		hasher.Write(m.encode())
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}
