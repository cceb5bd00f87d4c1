package live

import "sync"

// RollingLog keeps the most recent transcript lines in a fixed-size
// ring, overwriting the oldest once full.
type RollingLog struct {
	mu    sync.Mutex
	buf   []string
	head  int
	count int
}

// NewRollingLog creates a log holding at most capacity lines.
func NewRollingLog(capacity int) *RollingLog {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingLog{buf: make([]string, capacity)}
}

// Add appends one line, evicting the oldest when full.
func (l *RollingLog) Add(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[(l.head+l.count)%len(l.buf)] = line
	if l.count < len(l.buf) {
		l.count++
	} else {
		l.head = (l.head + 1) % len(l.buf)
	}
}

// Last returns up to n of the most recent lines, oldest first.
func (l *RollingLog) Last(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > l.count {
		n = l.count
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = l.buf[(l.head+l.count-n+i)%len(l.buf)]
	}
	return out
}

// Len returns the number of retained lines.
func (l *RollingLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Reset drops all retained lines.
func (l *RollingLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head, l.count = 0, 0
}
