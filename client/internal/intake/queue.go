package intake

import "errors"

var ErrQueueFrozen = errors.New("queue is frozen while a submission is in flight")

type Status string

const (
	StatusResolved              Status = "resolved"
	StatusDefaultedAfterFailure Status = "defaulted_after_failure"
)

type QueuedFile struct {
	Candidate
	Pages  int
	Status Status
	// Reason explains a defaulted page count.
	Reason string
}

// Queue holds the files pending submission. It is not safe for concurrent use.
type Queue struct {
	files  []QueuedFile
	index  map[Key]struct{}
	frozen bool
}

func NewQueue() *Queue {
	return &Queue{index: map[Key]struct{}{}}
}

// Add appends f unless a file with the same key is queued. A page count below
// one is stored as one page.
func (q *Queue) Add(f QueuedFile) (bool, error) {
	if q.frozen {
		return false, ErrQueueFrozen
	}

	k := f.Key()
	if _, dup := q.index[k]; dup {
		return false, nil
	}

	if f.Pages < 1 {
		f.Pages = 1
		f.Status = StatusDefaultedAfterFailure
		if f.Reason == "" {
			f.Reason = "no page count"
		}
	}
	if f.Status == "" {
		f.Status = StatusResolved
	}

	q.files = append(q.files, f)
	q.index[k] = struct{}{}
	return true, nil
}

func (q *Queue) Remove(k Key) (bool, error) {
	if q.frozen {
		return false, ErrQueueFrozen
	}
	if _, ok := q.index[k]; !ok {
		return false, nil
	}

	for i, f := range q.files {
		if f.Key() == k {
			q.files = append(q.files[:i], q.files[i+1:]...)
			break
		}
	}
	delete(q.index, k)
	return true, nil
}

func (q *Queue) Has(k Key) bool {
	_, ok := q.index[k]
	return ok
}

// Files returns a copy of the queue in arrival order.
func (q *Queue) Files() []QueuedFile {
	out := make([]QueuedFile, len(q.files))
	copy(out, q.files)
	return out
}

func (q *Queue) Len() int { return len(q.files) }

func (q *Queue) TotalPages() int {
	total := 0
	for _, f := range q.files {
		total += f.Pages
	}
	return total
}

func (q *Queue) Reset() error {
	if q.frozen {
		return ErrQueueFrozen
	}
	q.files = nil
	q.index = map[Key]struct{}{}
	return nil
}

// Freeze rejects mutations until Unfreeze.
func (q *Queue) Freeze() { q.frozen = true }

func (q *Queue) Unfreeze() { q.frozen = false }

func (q *Queue) Frozen() bool { return q.frozen }
