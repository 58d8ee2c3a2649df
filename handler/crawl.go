// Package handler exposes the service's HTTP API: triggering crawls,
// inspecting sites and runs, and querying extracted permits.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/messaging"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/utils"
	"github.com/civiclens/permit-crawler/sites"
	"github.com/civiclens/permit-crawler/store"
)

type CrawlHandler struct {
	db     *db.DB
	broker *messaging.NatsBroker
	runs   *store.RunStore
	router *chi.Mux
}

func NewCrawlHandler(database *db.DB, broker *messaging.NatsBroker) *CrawlHandler {
	router := chi.NewRouter()

	h := &CrawlHandler{
		db:     database,
		broker: broker,
		runs:   store.NewRunStore(database),
		router: router,
	}

	router.Post("/{siteID}", h.handleTriggerCrawl)
	router.Get("/{siteID}/runs", h.handleListRuns)
	return h
}

func (h *CrawlHandler) Router() *chi.Mux {
	return h.router
}

// CrawlParams is the trigger-crawl request body. Dates are calendar dates in
// YYYY-MM-DD form; both empty means today.
type CrawlParams struct {
	StartDate   string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	RecordLimit int    `json:"record_limit" validate:"omitempty,gte=0,lte=10000"`
}

func (h *CrawlHandler) handleTriggerCrawl(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	site, ok := sites.Get(siteID)
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown site")
		return
	}

	var p CrawlParams
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	req := messaging.CrawlRequest{
		JobID:       jobID.String(),
		SiteID:      site.ID,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		RecordLimit: p.RecordLimit,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "failed to marshal request")
		return
	}

	if err := h.broker.PublishSync(r.Context(), messaging.CrawlSubject(site.ID), payload); err != nil {
		log.Error().Str("site", site.ID).Err(err).Msg("publish crawl request failed")
		utils.WriteError(w, http.StatusInternalServerError, "failed to enqueue crawl")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, models.BaseResponse{Data: req})
}

func (h *CrawlHandler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if _, ok := sites.Get(siteID); !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown site")
		return
	}

	runs, err := h.runs.RecentBySite(r.Context(), siteID, 20)
	if err != nil {
		log.Error().Str("site", siteID).Err(err).Msg("list crawl runs failed")
		utils.WriteError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.BaseResponse{Data: runs})
}
