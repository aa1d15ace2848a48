package mqtt

import "github.com/rs/zerolog/log"

// bufferedMsg is a formatted publish held back until the broker is reachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest capacity messages published while offline.
// Readings go stale, so when it is full the oldest message is dropped.
// The caller serialises access.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int // slot the next push writes
	size    int
	dropped int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % len(r.msgs)

	if r.size < len(r.msgs) {
		r.size++
		return
	}
	// Full: the slot just written held the oldest message.
	if r.dropped == 0 {
		log.Warn().
			Int("capacity", len(r.msgs)).
			Str("topic", msg.topic).
			Msg("mqtt: offline buffer full, dropping oldest messages")
	}
	r.dropped++
}

// drain returns the buffered messages oldest first and how many were lost
// to overflow, then empties the buffer.
func (r *ringBuffer) drain() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.size == 0 {
		return nil, dropped
	}

	out := make([]bufferedMsg, 0, r.size)
	first := (r.next - r.size + len(r.msgs)) % len(r.msgs)
	for i := 0; i < r.size; i++ {
		out = append(out, r.msgs[(first+i)%len(r.msgs)])
	}

	r.next = 0
	r.size = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.size
}
