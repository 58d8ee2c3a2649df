package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/utils"
	"github.com/civiclens/permit-crawler/sites"
)

type SiteHandler struct {
	router *chi.Mux
}

func NewSiteHandler() *SiteHandler {
	router := chi.NewRouter()
	h := &SiteHandler{router: router}

	router.Get("/", h.handleListSites)
	router.Get("/{siteID}", h.handleGetSite)
	return h
}

func (h *SiteHandler) Router() *chi.Mux {
	return h.router
}

// siteView is the API shape of a site; IDs only carry what a caller needs
// to trigger and interpret crawls.
type siteView struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Platform            string `json:"platform"`
	City                string `json:"city"`
	State               string `json:"state"`
	SearchURL           string `json:"search_url"`
	DateSearchSupported bool   `json:"date_search_supported"`
	DetailEnrichment    bool   `json:"detail_enrichment"`
}

func toSiteView(s sites.Site) siteView {
	return siteView{
		ID:                  s.ID,
		Name:                s.Name,
		Platform:            string(s.Platform),
		City:                s.City,
		State:               s.State,
		SearchURL:           s.SearchURL(),
		DateSearchSupported: s.DateSearchSupported,
		DetailEnrichment:    s.DetailEnrichment,
	}
}

func (h *SiteHandler) handleListSites(w http.ResponseWriter, r *http.Request) {
	all := sites.All()
	views := make([]siteView, 0, len(all))
	for _, id := range sites.IDs() {
		views = append(views, toSiteView(all[id]))
	}
	utils.WriteJSON(w, http.StatusOK, models.BaseResponse{Data: views})
}

func (h *SiteHandler) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, ok := sites.Get(chi.URLParam(r, "siteID"))
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown site")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.BaseResponse{Data: toSiteView(site)})
}
