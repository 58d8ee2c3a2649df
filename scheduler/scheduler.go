// Package scheduler enqueues the daily crawl of every registered site.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/common/messaging"
	"github.com/civiclens/permit-crawler/sites"
)

// Runner crawls every registered site for one day. The crawl service
// implements it over the worker pool.
type Runner interface {
	RunAll(ctx context.Context, day time.Time, recordLimit int) error
}

// Scheduler publishes one crawl request per registered site on a cron
// schedule. The crawl workers consume the requests off the bus, so a slow
// site never delays the others' enqueueing. With a local runner set the
// crawls run in-process instead.
type Scheduler struct {
	broker *messaging.NatsBroker
	cron   *cron.Cron
	spec   string
	runner Runner
}

func New(broker *messaging.NatsBroker, spec string) *Scheduler {
	return &Scheduler{
		broker: broker,
		cron:   cron.New(),
		spec:   spec,
	}
}

// SetLocalRunner switches the scheduler from publishing crawl requests to
// running every site's crawl in-process.
func (s *Scheduler) SetLocalRunner(r Runner) {
	s.runner = r
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("register cron %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("crawl scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running enqueue to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runOnce covers one scheduled day: in-process when a local runner is set,
// otherwise by enqueueing per-site requests on the bus.
func (s *Scheduler) runOnce(ctx context.Context, day time.Time) {
	if s.runner != nil {
		if err := s.runner.RunAll(ctx, day, 0); err != nil {
			log.Error().Err(err).Msg("scheduled local crawl run failed")
		}
		return
	}
	s.EnqueueAll(ctx, day)
}

// EnqueueAll publishes a crawl request for every registered site, covering
// the given day. Per-site publish failures are logged and skipped; one bad
// publish must not starve the remaining sites.
func (s *Scheduler) EnqueueAll(ctx context.Context, day time.Time) {
	date := day.Format("2006-01-02")

	for _, siteID := range sites.IDs() {
		jobID, err := uuid.NewV7()
		if err != nil {
			log.Error().Err(err).Msg("generate job id")
			continue
		}

		req := messaging.CrawlRequest{
			JobID:     jobID.String(),
			SiteID:    siteID,
			StartDate: date,
			EndDate:   date,
		}
		payload, err := json.Marshal(req)
		if err != nil {
			log.Error().Str("site", siteID).Err(err).Msg("marshal crawl request failed")
			continue
		}
		if err := s.broker.PublishSync(ctx, messaging.CrawlSubject(siteID), payload); err != nil {
			log.Error().Str("site", siteID).Err(err).Msg("enqueue crawl request failed")
			continue
		}
		log.Info().Str("site", siteID).Str("job", req.JobID).Str("date", date).Msg("crawl enqueued")
	}
}
