package runner

import (
	"bytes"
	"sync"
)

// tailLimit bounds how much step output is retained for run history.
const tailLimit = 4096

// tailBuffer keeps the last tailLimit bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) add(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - tailLimit; over > 0 {
		t.buf = t.buf[over:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineWriter splits step output into lines and forwards each as a
// step_output event, feeding the shared tail buffer along the way.
// One instance serves stdout, another stderr, over the same tail.
type lineWriter struct {
	r      *Runner
	proto  Event // template for emitted events
	stderr bool
	tail   *tailBuffer

	mu  sync.Mutex
	buf []byte
}

func newLineWriter(r *Runner, proto Event, stderr bool, tail *tailBuffer) *lineWriter {
	proto.Type = EventStepOutput
	proto.Stderr = stderr
	return &lineWriter{r: r, proto: proto, stderr: stderr, tail: tail}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.tail.add(p)

	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(w.buf[:idx]))
		w.buf = w.buf[idx+1:]
	}
	w.mu.Unlock()

	for _, line := range lines {
		ev := w.proto
		ev.Line = line
		w.r.emit(ev)
	}
	return len(p), nil
}

// Flush emits any trailing partial line. Called once the step is done.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	rest := w.buf
	w.buf = nil
	w.mu.Unlock()

	if len(rest) > 0 {
		ev := w.proto
		ev.Line = string(rest)
		w.r.emit(ev)
	}
}
