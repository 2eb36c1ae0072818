package scheduler

import (
	"testing"
	"time"

	"nxmodmgr/internal/domain"
)

func TestTickRunsInPriorityOrder(t *testing.T) {
	s := New(nil)
	var order []int
	s.Submit(KindOther, 2, func() { order = append(order, 2) })
	s.Submit(KindOther, 0, func() { order = append(order, 0) })
	s.Submit(KindOther, 1, func() { order = append(order, 1) })

	s.Tick()

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("run order = %v, want [0 1 2]", order)
	}
}

func TestTickCapsIconsPerFrameAndRunsNonIconInstead(t *testing.T) {
	s := New(nil)
	var order []string
	for i := 0; i < 3; i++ {
		i := i
		s.Submit(KindIcon, 0, func() { order = append(order, "icon") })
		_ = i
	}
	s.Submit(KindOther, 1, func() { order = append(order, "other") })

	s.Tick()

	if len(order) != 3 {
		t.Fatalf("tasks run = %d, want 3 (2 icons + the other task)", len(order))
	}
	iconCount, otherCount := 0, 0
	for _, o := range order {
		if o == "icon" {
			iconCount++
		} else {
			otherCount++
		}
	}
	if iconCount != 2 || otherCount != 1 {
		t.Fatalf("iconCount=%d otherCount=%d, want 2/1", iconCount, otherCount)
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 (third icon restored)", s.Pending())
	}
}

func TestSubmitIconInvokesDecoder(t *testing.T) {
	var gotID domain.TitleID
	var gotBytes []byte
	s := New(func(id domain.TitleID, icon []byte) {
		gotID = id
		gotBytes = icon
	})
	s.SubmitIcon(domain.TitleID(42), []byte{1, 2, 3}, 0)
	s.Tick()

	if gotID != 42 || len(gotBytes) != 3 {
		t.Fatalf("decoder got id=%v bytes=%v", gotID, gotBytes)
	}
}

func TestLoadVisibleAreaDebounces(t *testing.T) {
	s := New(nil)
	now := time.Now()
	calls := 0
	submit := func(itemIndex, priority int) { calls++ }

	s.LoadVisibleArea(0, now, submit)
	firstCalls := calls

	s.LoadVisibleArea(9, now.Add(10*time.Millisecond), submit)
	if calls != firstCalls {
		t.Fatalf("expected debounced call to submit nothing, calls went from %d to %d", firstCalls, calls)
	}

	s.LoadVisibleArea(9, now.Add(200*time.Millisecond), submit)
	if calls == firstCalls {
		t.Fatal("expected call past the debounce window to submit")
	}
}

func TestLoadVisibleAreaShortCircuitsOnSameRange(t *testing.T) {
	s := New(nil)
	now := time.Now()
	calls := 0
	submit := func(itemIndex, priority int) { calls++ }

	s.LoadVisibleArea(0, now, submit)
	after := calls

	s.LoadVisibleArea(0, now.Add(500*time.Millisecond), submit)
	if calls != after {
		t.Fatalf("expected same-range call to short-circuit, calls went from %d to %d", after, calls)
	}
}

func TestForceReloadBypassesDebounce(t *testing.T) {
	s := New(nil)
	now := time.Now()
	calls := 0
	submit := func(itemIndex, priority int) { calls++ }

	s.LoadVisibleArea(0, now, submit)
	after := calls

	s.ForceReload()
	s.LoadVisibleArea(0, now.Add(time.Millisecond), submit)
	if calls == after {
		t.Fatal("expected ForceReload to force the next LoadVisibleArea call through")
	}
}
