package mqtt

import "log"

// bufferedMsg holds one outbound publish queued for replay once the broker
// connection comes back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer queues publishes attempted while the broker is unreachable,
// dropping the oldest entry when full. Not safe for concurrent use; the
// caller must synchronize.
type ringBuffer struct {
	buf   []bufferedMsg
	head  int // oldest queued entry
	count int
	noted bool // drop already logged since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	n := len(r.buf)
	if r.count == n {
		if !r.noted {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", n)
			r.noted = true
		}
		// Full: the slot at head is the oldest, reclaim it.
		r.buf[r.head] = msg
		r.head = (r.head + 1) % n
		return
	}
	r.buf[(r.head+r.count)%n] = msg
	r.count++
}

// drainAll returns the queued messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head = 0
	r.count = 0
	r.noted = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
