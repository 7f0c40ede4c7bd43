package pipeline

// Stats is a live snapshot of a run
type Stats struct {
	RunID              string       `json:"run_id"`
	Running            bool         `json:"running"`
	ProducersTotal     int          `json:"producers_total"`
	ProducersRemaining int          `json:"producers_remaining"`
	Queues             []QueueStats `json:"queues"`
	Producers          []TaskStats  `json:"producers"`
	Consumers          []TaskStats  `json:"consumers"`
}

// QueueStats describes one queue
type QueueStats struct {
	Index    int   `json:"index"`
	Depth    int   `json:"depth"`
	Capacity int   `json:"capacity"`
	Claimed  bool  `json:"claimed"`
	Inserted int64 `json:"inserted"`
	Popped   int64 `json:"popped"`
}

// TaskStats describes one producer or consumer
type TaskStats struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	State     string `json:"state"`
	Units     int64  `json:"units"`
	Discarded int64  `json:"discarded,omitempty"`
}

// Stats reads queue depths, claim flags and task states without stopping
// the run. Values are read one at a time, so the snapshot is not atomic
// across queues.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		RunID:              p.runID.String(),
		Running:            p.running.Load(),
		ProducersTotal:     p.tracker.Total(),
		ProducersRemaining: p.tracker.Remaining(),
		Queues:             make([]QueueStats, p.set.Len()),
		Producers:          make([]TaskStats, len(p.producers)),
		Consumers:          make([]TaskStats, len(p.consumers)),
	}

	for i := range s.Queues {
		q := p.set.Queue(i)
		s.Queues[i] = QueueStats{
			Index:    i,
			Depth:    q.Size(),
			Capacity: q.Cap(),
			Claimed:  p.set.Claimed(i),
			Inserted: p.tally.inserted[i].Load(),
			Popped:   p.tally.popped[i].Load(),
		}
	}
	for i, prod := range p.producers {
		s.Producers[i] = TaskStats{
			Index: i,
			ID:    prod.ID.String(),
			State: prod.State().String(),
			Units: prod.Units(),
		}
	}
	for i, c := range p.consumers {
		s.Consumers[i] = TaskStats{
			Index:     i,
			ID:        c.ID.String(),
			State:     c.State().String(),
			Units:     c.Emitted(),
			Discarded: c.Discarded(),
		}
	}
	return s
}
