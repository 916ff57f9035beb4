package outcome

import (
	"sync"
	"testing"

	"github.com/deixis/verdict/internal/report"
)

func TestSlot_InitiallyNone(t *testing.T) {
	var s Slot
	o := s.Load()
	if _, ok := o.(None); !ok {
		t.Fatalf("Load() = %T, want None", o)
	}
	if o.LinesLen() != 0 {
		t.Errorf("LinesLen() = %d, want 0", o.LinesLen())
	}
}

func TestSlot_StoreReplaces(t *testing.T) {
	var s Slot
	first := &Failure{ErrorCode: 1, Lines: stdout("boom")}
	second := &Report{Report: report.New()}

	s.Store(first)
	if s.Load() != Outcome(first) {
		t.Errorf("Load() = %v, want first outcome", s.Load())
	}
	s.Store(second)
	if s.Load() != Outcome(second) {
		t.Errorf("Load() = %v, want second outcome", s.Load())
	}
	s.Store(nil)
	if s.Load().Kind() != KindNone {
		t.Errorf("Store(nil) then Load().Kind() = %s, want none", s.Load().Kind())
	}
}

func TestSlot_BeginEnd(t *testing.T) {
	var s Slot
	if !s.Begin() {
		t.Fatal("first Begin() = false, want true")
	}
	if s.Begin() {
		t.Error("second Begin() = true while in flight, want false")
	}
	if !s.Busy() {
		t.Error("Busy() = false, want true")
	}
	s.End()
	if s.Busy() {
		t.Error("Busy() = true after End, want false")
	}
	if !s.Begin() {
		t.Error("Begin() after End = false, want true")
	}
}

func TestSlot_ConcurrentBegin(t *testing.T) {
	var s Slot
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin() {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if won != 1 {
		t.Errorf("%d goroutines won Begin, want exactly 1", won)
	}
}
