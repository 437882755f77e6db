package lockedfile

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestMutexSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".lock")

	unlock, err := MutexAt(path).Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	var mu sync.Mutex
	acquired := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		unlock2, err := MutexAt(path).Lock()
		if err != nil {
			t.Errorf("second Lock failed: %v", err)
			return
		}
		mu.Lock()
		acquired = true
		mu.Unlock()
		unlock2()
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	early := acquired
	mu.Unlock()
	if early {
		t.Fatal("second lock acquired while first was held")
	}

	unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("second lock never acquired")
	}
}
