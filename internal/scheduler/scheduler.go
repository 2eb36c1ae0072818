// Package scheduler implements the Resource Load Scheduler of
// spec.md §4.4: a priority heap of icon-decode and other UI-resource
// tasks, ticked once per frame so decoding never stalls the render
// loop, plus the viewport debouncing/paging policy that feeds it.
//
// The heap shape (a slice of pointers with an Index field, fixed up via
// container/heap) is grounded on standardbeagle-lci's
// internal/search.PriorityQueue.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"nxmodmgr/internal/domain"
)

// Kind distinguishes icon-decode tasks, which are frame-budget capped,
// from everything else, which is not (spec.md §4.4).
type Kind int

const (
	KindIcon Kind = iota
	KindOther
)

// iconBudgetPerFrame caps the number of Icon tasks executed per Tick.
const iconBudgetPerFrame = 2

// Task is one unit of scheduled work: decode an icon, or any other
// resource job the caller wants frame-paced rather than run inline.
type Task struct {
	Kind       Kind
	Priority   int   // ascending: 0 runs before 1, etc.
	SubmitTime int64 // monotonic submit sequence, ascending tiebreak
	Run        func()

	index int // heap.Interface bookkeeping
}

// queue is a min-heap over (Priority asc, SubmitTime asc), mirroring
// standardbeagle-lci's PriorityQueue shape.
type queue []*Task

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority < q[j].Priority
	}
	return q[i].SubmitTime < q[j].SubmitTime
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// IconDecoder decodes a title's icon JPEG and registers it with the UI
// texture atlas. The actual decode/registration is out of scope (it
// belongs to the font/vector-graphics layer spec.md §6 excludes); the
// Scheduler only guarantees it runs at most iconBudgetPerFrame times
// per Tick.
type IconDecoder func(id domain.TitleID, iconJPEG []byte)

// Scheduler runs Task values at a bounded per-frame icon rate.
type Scheduler struct {
	mu         sync.Mutex
	q          queue
	submitSeq  int64
	decodeIcon IconDecoder

	lastVisible  visibleRange
	lastLoadCall time.Time
	hasLastCall  bool
}

// New returns an empty Scheduler. decodeIcon may be nil, in which case
// icon tasks are dequeued and counted against the frame budget but do
// nothing.
func New(decodeIcon IconDecoder) *Scheduler {
	s := &Scheduler{decodeIcon: decodeIcon}
	heap.Init(&s.q)
	return s
}

// Submit enqueues a task. SubmitIcon (catalogue.IconSubmitter) funnels
// through this; LoadVisibleArea does not, it hands each item to its
// caller-supplied submit callback instead.
func (s *Scheduler) Submit(kind Kind, priority int, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitSeq++
	heap.Push(&s.q, &Task{Kind: kind, Priority: priority, SubmitTime: s.submitSeq, Run: run})
}

// SubmitIcon implements catalogue.IconSubmitter: an icon decode task is
// submitted at the given priority (spec.md §4.1 submits priority 0).
func (s *Scheduler) SubmitIcon(id domain.TitleID, iconJPEG []byte, priority int) {
	s.Submit(KindIcon, priority, func() {
		if s.decodeIcon != nil {
			s.decodeIcon(id, iconJPEG)
		}
	})
}

// Tick runs queued tasks in priority order, executing at most
// iconBudgetPerFrame Icon tasks. If the heap top is an Icon task and
// the budget is spent, Tick searches past it for the first non-Icon
// task, runs that, and restores the skipped Icon tasks to the heap in
// their original relative order (spec.md §4.4).
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	iconsRun := 0
	for s.q.Len() > 0 {
		top := s.q[0]
		if top.Kind == KindIcon && iconsRun >= iconBudgetPerFrame {
			if !s.runFirstNonIcon() {
				return // nothing but icons left, and budget is spent
			}
			continue
		}

		t := heap.Pop(&s.q).(*Task)
		if t.Run != nil {
			t.Run()
		}
		if t.Kind == KindIcon {
			iconsRun++
		}
	}
}

// runFirstNonIcon pops icons off the top of the heap until it finds a
// non-icon task (or drains the heap), runs that task, and pushes the
// skipped icons back. Returns false if the heap held only icons.
func (s *Scheduler) runFirstNonIcon() bool {
	var skipped []*Task
	found := false
	for s.q.Len() > 0 {
		t := heap.Pop(&s.q).(*Task)
		if t.Kind != KindIcon {
			if t.Run != nil {
				t.Run()
			}
			found = true
			break
		}
		skipped = append(skipped, t)
	}
	for _, t := range skipped {
		heap.Push(&s.q, t)
	}
	return found
}

// Pending returns the number of tasks still queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Len()
}
