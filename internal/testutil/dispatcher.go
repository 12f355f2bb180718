package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sangkips/posflow-api/internal/domain/event"
)

// Dispatcher records enqueued jobs. When Err is set every enqueue fails with it. When Stall
// is set every enqueue waits for its context to end, like a broker that stopped answering.
type Dispatcher struct {
	mu       sync.Mutex
	jobs     []event.Job
	failures []error
	Err      error
	Stall    bool
}

// Enqueue records the job
func (d *Dispatcher) Enqueue(ctx context.Context, job event.Job) error {
	d.mu.Lock()
	stall := d.Stall
	d.mu.Unlock()
	if stall {
		<-ctx.Done()
		d.fail(ctx.Err())
		return ctx.Err()
	}
	if ctx.Err() != nil {
		d.fail(ctx.Err())
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		d.failures = append(d.failures, d.Err)
		return d.Err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *Dispatcher) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, err)
}

// Failures returns the errors of the rejected enqueues
func (d *Dispatcher) Failures() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.failures...)
}

// Jobs returns the recorded jobs
func (d *Dispatcher) Jobs() []event.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.Job(nil), d.jobs...)
}

// Codes returns the codes of the recorded jobs in enqueue order
func (d *Dispatcher) Codes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	codes := make([]string, len(d.jobs))
	for i, job := range d.jobs {
		codes[i] = job.Code
	}
	return codes
}

// Broadcasts decodes every socket broadcast payload
func (d *Dispatcher) Broadcasts() []event.BroadcastPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []event.BroadcastPayload
	for _, job := range d.jobs {
		if job.Code != event.JobSocketBroadcast {
			continue
		}
		var p event.BroadcastPayload
		if err := json.Unmarshal(job.Payload, &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Fanouts decodes every production ticket fan-out payload
func (d *Dispatcher) Fanouts() []event.TicketFanoutPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []event.TicketFanoutPayload
	for _, job := range d.jobs {
		if job.Code != event.JobProductionTicketFanout {
			continue
		}
		var p event.TicketFanoutPayload
		if err := json.Unmarshal(job.Payload, &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Reset forgets the recorded jobs
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = nil
	d.failures = nil
}
