package cron

import (
	"context"
	"fmt"
)

// Job is one maintenance task. Run reports how many rows it changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry is an ordered set of jobs with unique names.
type Registry struct {
	order []Job
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Add registers jobs in order. Nil entries are skipped so optional jobs can
// be passed straight through; a repeated name is an error.
func (r *Registry) Add(jobs ...Job) error {
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := job.Name()
		if _, dup := r.names[name]; dup {
			return fmt.Errorf("cron job %q registered twice", name)
		}
		r.names[name] = struct{}{}
		r.order = append(r.order, job)
	}
	return nil
}

func (r *Registry) Len() int { return len(r.order) }

// each visits jobs in registration order.
func (r *Registry) each(fn func(Job)) {
	for _, job := range r.order {
		fn(job)
	}
}
