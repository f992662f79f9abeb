package task

import "math"

// Stats is the aggregate view of a queue. It is always derived from the
// task list and never mutated on its own.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	// Percent is (completed+failed+cancelled)/total*100 rounded, or 0 for an empty queue.
	Percent int `json:"percent"`
}

// Settled returns the number of tasks in a terminal status.
func (s Stats) Settled() int {
	return s.Completed + s.Failed + s.Cancelled
}

// FinishedWithFailures reports whether every task has settled and at least
// one of them failed.
func (s Stats) FinishedWithFailures() bool {
	return s.Total > 0 && s.Settled() == s.Total && s.Failed > 0
}

// computeStats derives Stats from tasks.
func computeStats(tasks []*Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	if s.Total > 0 {
		s.Percent = int(math.Round(float64(s.Settled()) / float64(s.Total) * 100))
	}
	return s
}
