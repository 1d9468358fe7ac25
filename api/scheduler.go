/*
scheduler.go - Automated daily accrual scheduler

DESIGN:
  - Background goroutine with a configurable check interval
  - Every tick runs the batch for today's date (UTC)
  - The batch is idempotent per wallet, so firing more than once per day
    only re-attempts wallets that previously failed; everything else is
    reported as skipped

  The interval is deliberately shorter than a day (default 1h): a wallet
  that failed at midnight gets retried through the day without operator
  action.
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/ledger"
)

// AccrualScheduler triggers the daily accrual batch on an interval.
type AccrualScheduler struct {
	Service       *ledger.Service
	CheckInterval time.Duration
	Enabled       bool
	Log           logrus.FieldLogger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewAccrualScheduler(service *ledger.Service, interval time.Duration, log logrus.FieldLogger) *AccrualScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AccrualScheduler{
		Service:       service,
		CheckInterval: interval,
		Enabled:       true,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *AccrualScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("accrual scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Log.WithField("interval", s.CheckInterval.String()).Info("accrual scheduler started")
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.Log.Info("accrual scheduler stopped")
	}
}

func (s *AccrualScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start.
	s.runOnce()

	for {
		select {
		case <-s.ticker.C:
			s.runOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *AccrualScheduler) runOnce() {
	ctx := context.Background()
	date := ledger.Today()

	results, err := s.Service.RunDailyAccrual(ctx, date)
	if err != nil {
		s.Log.WithFields(logrus.Fields{"date": date.String(), "error": err}).
			Error("daily accrual run failed")
		return
	}

	var applied, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case ledger.StatusApplied:
			applied++
		case ledger.StatusSkipped:
			skipped++
		case ledger.StatusFailed:
			failed++
		}
	}
	if applied > 0 || failed > 0 {
		s.Log.WithFields(logrus.Fields{
			"date":    date.String(),
			"applied": applied,
			"skipped": skipped,
			"failed":  failed,
		}).Info("daily accrual run completed")
	}
}

// RunNow triggers an immediate run (admin/testing).
func (s *AccrualScheduler) RunNow() {
	s.runOnce()
}
