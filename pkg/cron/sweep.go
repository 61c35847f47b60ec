package cron

import (
	"log"

	"github.com/robfig/cron/v3"
)

// SweepJob removes stale in-memory entries and reports how many went
type SweepJob struct {
	Name  string
	Sweep func() int
}

// InitSweepCron runs the given jobs on spec, e.g. "@every 1m". The returned
// cron must be stopped on shutdown.
func InitSweepCron(spec string, jobs ...SweepJob) (*cron.Cron, error) {
	c := cron.New()

	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(spec, func() { runSweep(job) }); err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}

func runSweep(job SweepJob) int {
	n := job.Sweep()
	if n > 0 {
		log.Printf("%s sweep removed %d entries", job.Name, n)
	}
	return n
}
