package orchestrator

import "github.com/lexharvest/docstream/internal/extraction"

// pendingJob is a submission waiting for a concurrency slot.
type pendingJob struct {
	job       extraction.Job
	extractor extraction.Extractor
}

// fifo is a plain first-in-first-out queue of pending jobs. Not safe for
// concurrent use; callers hold the orchestrator mutex.
type fifo struct {
	items []pendingJob
}

func (q *fifo) push(item pendingJob) {
	q.items = append(q.items, item)
}

func (q *fifo) pop() (pendingJob, bool) {
	if len(q.items) == 0 {
		return pendingJob{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *fifo) find(jobID string) (extraction.Job, bool) {
	for _, item := range q.items {
		if item.job.ID == jobID {
			return item.job, true
		}
	}
	return extraction.Job{}, false
}

func (q *fifo) len() int {
	return len(q.items)
}
