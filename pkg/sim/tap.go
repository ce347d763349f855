package sim

import (
	"io"
	"sync"

	"github.com/golang/glog"
)

// DefaultSinkBacklog is the number of writes queued per attached writer.
const DefaultSinkBacklog = 4096

// Tap fans out transmitted bytes to attached writers. Every writer is
// served by its own goroutine, so a slow writer never blocks Write. Data
// that does not fit in a writer's backlog is dropped for that writer. A
// writer that fails is detached.
type Tap struct {
	// Backlog overrides DefaultSinkBacklog for writers attached later.
	Backlog int

	lock   sync.Mutex
	sinks  map[int]*sink
	nextID int
}

type sink struct {
	id       int
	w        io.Writer
	dataCh   chan []byte
	dropped  uint64
	dropping bool
	once     sync.Once
}

func (s *sink) close() {
	s.once.Do(func() { close(s.dataCh) })
}

// Attach adds w and returns a func to detach it.
func (t *Tap) Attach(w io.Writer) (detach func()) {
	backlog := t.Backlog
	if backlog <= 0 {
		backlog = DefaultSinkBacklog
	}
	t.lock.Lock()
	if t.sinks == nil {
		t.sinks = make(map[int]*sink)
	}
	s := &sink{id: t.nextID, w: w, dataCh: make(chan []byte, backlog)}
	t.nextID++
	t.sinks[s.id] = s
	t.lock.Unlock()

	go t.serve(s)
	return func() { t.detach(s) }
}

func (t *Tap) detach(s *sink) {
	t.lock.Lock()
	if t.sinks[s.id] == s {
		delete(t.sinks, s.id)
	}
	t.lock.Unlock()
	s.close()
}

func (t *Tap) serve(s *sink) {
	for data := range s.dataCh {
		if _, err := s.w.Write(data); err != nil {
			glog.Warningf("tap: detach writer %d: %v", s.id, err)
			t.detach(s)
			// drain so late Writes never block on a dead sink.
			for range s.dataCh {
			}
			return
		}
	}
}

// Write implements io.Writer. It never blocks on attached writers and
// never fails.
func (t *Tap) Write(p []byte) (int, error) {
	data := append([]byte(nil), p...)
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, s := range t.sinks {
		select {
		case s.dataCh <- data:
			if s.dropping {
				glog.Warningf("tap: writer %d resumed, %d bytes dropped", s.id, s.dropped)
				s.dropping = false
			}
		default:
			if !s.dropping {
				glog.Warningf("tap: writer %d is too slow, dropping output", s.id)
				s.dropping = true
			}
			s.dropped += uint64(len(data))
		}
	}
	return len(p), nil
}

// Len returns the number of attached writers.
func (t *Tap) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.sinks)
}

// Dropped returns the bytes dropped per attached writer ID.
func (t *Tap) Dropped() map[int]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	res := make(map[int]uint64, len(t.sinks))
	for id, s := range t.sinks {
		res[id] = s.dropped
	}
	return res
}
