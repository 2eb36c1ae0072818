package scheduler

import "time"

// pageSize is the number of items in a visible grid page (spec.md §4.4).
const pageSize = 9

// preloadSize is the number of items past the page end to preload.
const preloadSize = 3

// debounceWindow rejects a LoadVisibleArea call less than this long
// after the previous one (spec.md §4.4).
const debounceWindow = 100 * time.Millisecond

// forceReload is the sentinel visible range meaning "force reload",
// set on sort/index resets (spec.md §4.4's SIZE_MAX, SIZE_MAX).
var forceReload = visibleRange{start: -1, end: -1}

type visibleRange struct {
	start, end int
}

// LoadVisibleArea computes the priority-tagged item range for
// gridIndex and submits a load task per item via submit, honouring the
// debounce window and the cached-range short-circuit (spec.md §4.4).
// Passing forceReload via ForceReload bypasses both.
func (s *Scheduler) LoadVisibleArea(gridIndex int, now time.Time, submit func(itemIndex, priority int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLastCall && now.Sub(s.lastLoadCall) < debounceWindow {
		return
	}

	page := visibleRange{start: gridIndex, end: gridIndex + pageSize}
	if s.hasLastCall && s.lastVisible == page {
		s.lastLoadCall = now
		return
	}

	s.lastVisible = page
	s.lastLoadCall = now
	s.hasLastCall = true

	for i := page.start; i < page.end; i++ {
		priority := 0
		if i-page.start >= pageSize/2 {
			priority = 1
		}
		submit(i, priority)
	}
	for i := page.end; i < page.end+preloadSize; i++ {
		submit(i, 2)
	}
}

// ForceReload resets the debounce/cache state so the next
// LoadVisibleArea call always runs (spec.md §4.4's SIZE_MAX sentinel),
// used on sort/index resets.
func (s *Scheduler) ForceReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVisible = forceReload
	s.hasLastCall = false
}
