package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

// syncWriter guards the buffer against the animation goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestSpinnerSuccess(t *testing.T) {
	w := &syncWriter{}
	s := NewSpinner(w, "exporting")
	s.Start()
	s.Success("exported to archive.json")

	if !strings.Contains(w.String(), "exported to archive.json") {
		t.Errorf("output = %q, want success message", w.String())
	}
}

func TestSpinnerFail(t *testing.T) {
	w := &syncWriter{}
	s := NewSpinner(w, "importing")
	s.Start()
	s.Fail("import failed")

	if !strings.Contains(w.String(), "import failed") {
		t.Errorf("output = %q, want failure message", w.String())
	}
}

func TestSpinnerStopClearsLine(t *testing.T) {
	w := &syncWriter{}
	s := NewSpinner(w, "working")
	s.Start()
	s.Stop()

	if !strings.Contains(w.String(), "\033[K") {
		t.Errorf("output = %q, want clear-line sequence", w.String())
	}
}
