package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/utils"
	"github.com/civiclens/permit-crawler/store"
)

type PermitHandler struct {
	permits *store.PermitStore
	router  *chi.Mux
}

func NewPermitHandler(database *db.DB) *PermitHandler {
	router := chi.NewRouter()
	h := &PermitHandler{
		permits: store.NewPermitStore(database),
		router:  router,
	}

	router.Get("/", h.handleListPermits)
	return h
}

func (h *PermitHandler) Router() *chi.Mux {
	return h.router
}

func (h *PermitHandler) handleListPermits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ListFilter{
		SiteID: q.Get("site"),
		City:   q.Get("city"),
		State:  q.Get("state"),
	}
	if status := q.Get("status"); status != "" {
		filter.Status = models.PermitStatus(status)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	permits, err := h.permits.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("list permits failed")
		utils.WriteError(w, http.StatusInternalServerError, "failed to list permits")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.BaseResponse{Data: permits})
}
