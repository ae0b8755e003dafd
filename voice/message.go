package voice

import "sync/atomic"

// MessageKind discriminates control messages.
type MessageKind uint8

const (
	// KindNoteOn starts or slides into a note.
	KindNoteOn MessageKind = iota
	// KindNoteOff releases the named pitch.
	KindNoteOff
	// KindSetParameter updates one parameter value.
	KindSetParameter
	// KindAllNotesOff hard-resets the voice to silence.
	KindAllNotesOff
)

// Message is one control event. Messages are value types so the queue
// never allocates on the audio path.
type Message struct {
	Kind     MessageKind
	Pitch    float64
	Velocity float64
	Accent   bool
	Slide    bool
	Param    ParamID
	Value    float64
}

// NoteOn builds a note-on message. Pitch is a MIDI note number; fractional
// values are legal and detune accordingly.
func NoteOn(pitch, velocity float64, accent, slide bool) Message {
	return Message{Kind: KindNoteOn, Pitch: pitch, Velocity: velocity, Accent: accent, Slide: slide}
}

// NoteOff builds a note-off message for the named pitch.
func NoteOff(pitch float64) Message {
	return Message{Kind: KindNoteOff, Pitch: pitch}
}

// SetParameter builds a parameter-change message.
func SetParameter(id ParamID, value float64) Message {
	return Message{Kind: KindSetParameter, Param: id, Value: value}
}

// AllNotesOff builds a hard-reset message.
func AllNotesOff() Message {
	return Message{Kind: KindAllNotesOff}
}

// queue is a bounded single-producer single-consumer ring. Exactly one
// control goroutine may push and exactly one audio goroutine may pop; under
// that contract the two atomic indices are sufficient synchronization. A
// full queue drops the new message rather than blocking the producer.
type queue struct {
	buf     []Message
	mask    uint64
	head    atomic.Uint64 // next slot to pop, owned by the consumer
	tail    atomic.Uint64 // next slot to push, owned by the producer
	dropped atomic.Uint64
}

func newQueue(capacity int) *queue {
	n := nextPow2(capacity)

	return &queue{
		buf:  make([]Message, n),
		mask: uint64(n - 1),
	}
}

// push enqueues m, returning false (and counting a drop) when full.
func (q *queue) push(m Message) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}

	q.buf[tail&q.mask] = m
	q.tail.Store(tail + 1)

	return true
}

// pop dequeues the oldest message, if any.
func (q *queue) pop() (Message, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Message{}, false
	}

	m := q.buf[head&q.mask]
	q.head.Store(head + 1)

	return m, true
}

func (q *queue) droppedCount() uint64 { return q.dropped.Load() }

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
