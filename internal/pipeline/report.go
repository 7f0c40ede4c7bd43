package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report summarizes a finished run
type Report struct {
	RunID      string     `json:"run_id"`
	Mode       Mode       `json:"mode"`
	Assignment Assignment `json:"assignment"`
	StartedAt  time.Time  `json:"started_at"`
	Seconds    float64    `json:"duration_seconds"`
	Cancelled  bool       `json:"cancelled"`

	Producers []ProducerReport `json:"producers"`
	Consumers []ConsumerReport `json:"consumers"`
	Queues    []QueueReport    `json:"queues"`

	// ClaimsBusy and ClaimsFull count failed probes of the selection protocol
	ClaimsBusy int64   `json:"claims_busy"`
	ClaimsFull int64   `json:"claims_full"`
	Balance    Balance `json:"balance"`

	Duration time.Duration `json:"-"`
}

// ProducerReport is one producer's outcome
type ProducerReport struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Source    string `json:"source"`
	MIME      string `json:"mime,omitempty"`
	Charset   string `json:"charset,omitempty"`
	Units     int64  `json:"units"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConsumerReport is one consumer's outcome
type ConsumerReport struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Emitted   int64  `json:"emitted"`
	Discarded int64  `json:"discarded"`
	Tokens    int64  `json:"tokens"`
	Error     string `json:"error,omitempty"`
}

// QueueReport is one queue's traffic
type QueueReport struct {
	Index    int   `json:"index"`
	Inserted int64 `json:"inserted"`
	Popped   int64 `json:"popped"`
}

// Balance describes how evenly units spread across queues
type Balance struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func (p *Pipeline) report(elapsed time.Duration, perr, cerr []error, cancelled bool) *Report {
	r := &Report{
		RunID:      p.runID.String(),
		Mode:       p.cfg.Mode,
		Assignment: p.cfg.Assignment,
		StartedAt:  p.startedAt,
		Seconds:    elapsed.Seconds(),
		Duration:   elapsed,
		Cancelled:  cancelled,
		Producers:  make([]ProducerReport, len(p.producers)),
		Consumers:  make([]ConsumerReport, len(p.consumers)),
		Queues:     make([]QueueReport, p.set.Len()),
		ClaimsBusy: p.tally.busy.Load(),
		ClaimsFull: p.tally.full.Load(),
	}

	for i, prod := range p.producers {
		r.Producers[i] = ProducerReport{
			Index:     i,
			ID:        prod.ID.String(),
			Source:    prod.Path,
			MIME:      prod.mime,
			Charset:   prod.charset,
			Units:     prod.Units(),
			Cancelled: prod.cancelled,
			Error:     errString(perr[i]),
		}
	}
	for i, c := range p.consumers {
		r.Consumers[i] = ConsumerReport{
			Index:     i,
			ID:        c.ID.String(),
			Emitted:   c.Emitted(),
			Discarded: c.Discarded(),
			Tokens:    c.tokens.Load(),
			Error:     errString(cerr[i]),
		}
	}

	totals := make([]float64, len(r.Queues))
	for i := range r.Queues {
		r.Queues[i] = QueueReport{
			Index:    i,
			Inserted: p.tally.inserted[i].Load(),
			Popped:   p.tally.popped[i].Load(),
		}
		totals[i] = float64(r.Queues[i].Inserted)
	}
	r.Balance = balance(totals)
	return r
}

func balance(totals []float64) Balance {
	if len(totals) == 0 {
		return Balance{}
	}
	b := Balance{
		Mean: stat.Mean(totals, nil),
		Min:  floats.Min(totals),
		Max:  floats.Max(totals),
	}
	if len(totals) > 1 {
		b.StdDev = stat.StdDev(totals, nil)
	}
	return b
}

// UnitsRead returns the units inserted by every producer
func (r *Report) UnitsRead() int64 {
	var n int64
	for _, p := range r.Producers {
		n += p.Units
	}
	return n
}

// UnitsEmitted returns the units written by every consumer
func (r *Report) UnitsEmitted() int64 {
	var n int64
	for _, c := range r.Consumers {
		n += c.Emitted
	}
	return n
}

// Failed returns the number of tasks that ended with an error, not
// counting producers stopped by cancellation
func (r *Report) Failed() int {
	n := 0
	for _, p := range r.Producers {
		if p.Error != "" && !p.Cancelled {
			n++
		}
	}
	for _, c := range r.Consumers {
		if c.Error != "" {
			n++
		}
	}
	return n
}

// JSON renders the report as indented JSON
func (r *Report) JSON() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(r, "", "  ")
}

// WriteFile writes the JSON report to path
func (r *Report) WriteFile(path string) error {
	data, err := r.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Fields summarizes the report for a log line
func (r *Report) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Duration("elapsed", r.Duration),
		zap.Int64("units_read", r.UnitsRead()),
		zap.Int64("units_emitted", r.UnitsEmitted()),
		zap.Int64("claims_busy", r.ClaimsBusy),
		zap.Int64("claims_full", r.ClaimsFull),
		zap.Float64("queue_mean", r.Balance.Mean),
		zap.Float64("queue_stddev", r.Balance.StdDev),
		zap.Int("failed", r.Failed()),
		zap.Bool("cancelled", r.Cancelled),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
