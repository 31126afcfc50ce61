package intcode

// queue is the FIFO input channel. Popped values are dropped from the front
// lazily; the backing array is compacted once most of it is dead.
type queue struct {
	buf  []int64
	head int
}

func (q *queue) push(vs ...int64) {
	q.buf = append(q.buf, vs...)
}

func (q *queue) pop() (int64, bool) {
	if q.head >= len(q.buf) {
		return 0, false
	}
	v := q.buf[q.head]
	q.head++
	switch {
	case q.head == len(q.buf):
		q.buf = q.buf[:0]
		q.head = 0
	case q.head >= 32 && q.head*2 >= len(q.buf):
		n := copy(q.buf, q.buf[q.head:])
		q.buf = q.buf[:n]
		q.head = 0
	}
	return v, true
}

func (q *queue) len() int {
	return len(q.buf) - q.head
}

// values returns a copy of the unconsumed tail.
func (q *queue) values() []int64 {
	if q.len() == 0 {
		return nil
	}
	out := make([]int64, q.len())
	copy(out, q.buf[q.head:])
	return out
}

func (q *queue) clone() queue {
	return queue{buf: q.values()}
}
