// Package schedule restarts the server at instants computed from a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Descriptor is the schedule as read from the settings file.
type Descriptor struct {
	Enabled bool
	// Expression is a standard 5-field cron expression or a descriptor such as "@daily".
	Expression string
	// TimeZone is an IANA zone name the expression is evaluated in.
	TimeZone string
}

// RestartFunc performs one full restart and returns once it has completed.
type RestartFunc func(ctx context.Context) error

// Scheduler invokes a RestartFunc on every tick. Ticks never overlap: a tick that fires
// while the previous restart is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	entry    cron.EntryID
	location *time.Location
	logger   *log.Logger
}

// New validates desc and prepares a stopped scheduler. The Enabled flag is not consulted;
// callers decide whether to build one.
func New(desc Descriptor, restart RestartFunc, logger *log.Logger) (*Scheduler, error) {
	if restart == nil {
		return nil, errors.New("restart callback is required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	loc, err := time.LoadLocation(desc.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", desc.TimeZone, err)
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{cron: c, location: loc, logger: logger}
	entry, err := c.AddFunc(desc.Expression, func() {
		s.logger.Println("Scheduled restart.")
		if err := restart(context.Background()); err != nil {
			s.logger.Printf("Scheduled restart failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", desc.Expression, err)
	}
	s.entry = entry
	return s, nil
}

// Start begins firing ticks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents further ticks. The returned context is done once a running restart returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next reports the next instant a restart will fire, in the schedule's time zone.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.cron.Entry(s.entry).Schedule.Next(now.In(s.location))
}

// Location is the time zone the expression is evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.location
}
