package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"

	"github.com/civiclens/permit-crawler/common/messaging"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/work"
	"github.com/civiclens/permit-crawler/sites"
	"github.com/civiclens/permit-crawler/store"
)

// Service wires the extraction engine to the rest of the system: it consumes
// crawl requests off the bus, runs the orchestrator, persists the haul, and
// publishes completion events.
type Service struct {
	orchestrator *Orchestrator
	permits      *store.PermitStore
	runs         *store.RunStore
	seen         *store.SeenCache
	broker       *messaging.NatsBroker
}

func NewService(o *Orchestrator, permits *store.PermitStore, runs *store.RunStore, seen *store.SeenCache, broker *messaging.NatsBroker) *Service {
	return &Service{
		orchestrator: o,
		permits:      permits,
		runs:         runs,
		seen:         seen,
		broker:       broker,
	}
}

// Subscribe attaches the service to every registered site's crawl subject.
// Requests for the same site share a queue group, so scaling out service
// instances splits the load instead of duplicating crawls.
func (s *Service) Subscribe(ctx context.Context) error {
	for _, siteID := range sites.IDs() {
		subject := messaging.CrawlSubject(siteID)
		_, err := messaging.SubscribeToQueueGroup(s.broker, subject, "crawl-workers", func(msg *nats.Msg) error {
			return s.Consume(ctx, msg.Data)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

// Consume handles one crawl request message.
func (s *Service) Consume(ctx context.Context, payload []byte) error {
	var req messaging.CrawlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Error().Err(err).Msg("malformed crawl request, dropping")
		return nil
	}

	site, ok := sites.Get(req.SiteID)
	if !ok {
		log.Error().Str("site", req.SiteID).Msg("crawl request for unregistered site, dropping")
		return nil
	}

	criteria, err := criteriaFromRequest(req)
	if err != nil {
		log.Error().Str("site", req.SiteID).Err(err).Msg("invalid crawl request dates, dropping")
		return nil
	}

	s.run(ctx, req.JobID, site, criteria)
	return nil
}

// run executes one crawl end to end and records its outcome. Persistence or
// bookkeeping failures are logged but do not fail the message; the crawl
// itself already happened.
func (s *Service) run(ctx context.Context, jobID string, site sites.Site, criteria models.SearchCriteria) models.CrawlResult {
	started := time.Now().UTC()
	log.Info().Str("site", site.ID).Str("job", jobID).Msg("crawl starting")

	result := s.orchestrator.Scrape(ctx, site, criteria)

	if result.Success {
		if _, err := s.permits.SaveBatch(ctx, site.ID, result.Permits, result.ScrapedAt); err != nil {
			log.Error().Str("site", site.ID).Err(err).Msg("permit batch save failed")
		}
		s.postProcess(ctx, site, result.Permits)
	}

	if err := s.runs.Record(ctx, store.CrawlRun{
		SiteID:      site.ID,
		Success:     result.Success,
		Error:       result.Error,
		PermitCount: len(result.Permits),
		StartedAt:   started,
	}); err != nil {
		log.Error().Str("site", site.ID).Err(err).Msg("crawl run bookkeeping failed")
	}

	s.publishCompleted(ctx, jobID, site.ID, result)
	return result
}

// postProcess handles the per-permit side work that should only happen the
// first time a permit is observed within the dedupe window.
func (s *Service) postProcess(ctx context.Context, site sites.Site, permits []models.Permit) {
	if s.seen == nil {
		return
	}

	for _, p := range permits {
		first, err := s.seen.MarkSeen(ctx, p)
		if err != nil {
			log.Debug().Str("site", site.ID).Str("permit", p.PermitNumber).Err(err).Msg("seen-cache write failed")
			continue
		}
		if !first {
			continue
		}
		log.Debug().Str("site", site.ID).Str("permit", p.PermitNumber).Msg("new permit observed")
	}
}

func (s *Service) publishCompleted(ctx context.Context, jobID, siteID string, result models.CrawlResult) {
	event := messaging.CrawlCompleted{
		JobID:       jobID,
		SiteID:      siteID,
		Success:     result.Success,
		Error:       result.Error,
		PermitCount: len(result.Permits),
		ScrapedAt:   result.ScrapedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Str("site", siteID).Err(err).Msg("marshal completion event failed")
		return
	}
	if err := s.broker.PublishSync(ctx, messaging.ResultSubject(siteID), payload); err != nil {
		log.Error().Str("site", siteID).Err(err).Msg("publish completion event failed")
	}
}

// RunAll crawls every registered site for one day through a worker pool.
// Sites are independent sequential crawls, so a handful run in parallel.
func (s *Service) RunAll(ctx context.Context, day time.Time, recordLimit int) error {
	pool, err := work.NewWorkerPoolWithConfig[models.CrawlResult](work.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("create crawl pool: %w", err)
	}

	pool.Start(ctx, "site-crawls")

	ids := sites.IDs()
	for _, siteID := range ids {
		site, _ := sites.Get(siteID)
		criteria := models.SearchCriteria{
			StartDate:   day,
			EndDate:     mo.Some(day),
			RecordLimit: recordLimit,
		}

		task, err := work.NewTask(func(ctx context.Context) (models.CrawlResult, error) {
			return s.run(ctx, "", site, criteria), nil
		}, work.WithID[models.CrawlResult]("crawl-"+siteID))
		if err != nil {
			pool.Stop()
			return fmt.Errorf("create crawl task: %w", err)
		}
		if err := pool.AddTask(ctx, task); err != nil {
			pool.Stop()
			return fmt.Errorf("enqueue crawl task: %w", err)
		}
	}

	completed := 0
	for completed < len(ids) {
		select {
		case res := <-pool.Results():
			completed++
			if !res.IsSuccess() {
				log.Error().Str("task", res.TaskID).Err(res.Error).Msg("site crawl task failed")
			}
		case <-ctx.Done():
			pool.Stop()
			return ctx.Err()
		}
	}

	pool.Stop()
	return nil
}

// criteriaFromRequest parses the request's calendar dates. Empty dates keep
// their zero values; the orchestrator applies the today defaults.
func criteriaFromRequest(req messaging.CrawlRequest) (models.SearchCriteria, error) {
	criteria := models.SearchCriteria{RecordLimit: req.RecordLimit}

	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return criteria, fmt.Errorf("start date %q: %w", req.StartDate, err)
		}
		criteria.StartDate = start
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return criteria, fmt.Errorf("end date %q: %w", req.EndDate, err)
		}
		criteria.EndDate = mo.Some(end)
	}
	return criteria, nil
}
