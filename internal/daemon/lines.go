package daemon

import (
	"hotfolder/internal/model"
	"sync"
)

// lineBuffer keeps the most recent status lines in memory.
type lineBuffer struct {
	mu    sync.RWMutex
	size  int
	lines []model.StatusLine
}

func newLineBuffer(size int) *lineBuffer {
	if size <= 0 {
		size = 1
	}

	return &lineBuffer{
		size:  size,
		lines: make([]model.StatusLine, 0, size),
	}
}

func (b *lineBuffer) Add(line model.StatusLine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == b.size {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:len(b.lines)-1]
	}
	b.lines = append(b.lines, line)
}

// Last returns up to n lines, oldest first.
func (b *lineBuffer) Last(n int) []model.StatusLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.lines) {
		n = len(b.lines)
	}

	out := make([]model.StatusLine, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}
