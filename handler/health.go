package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/common/utils"
)

type HealthHandler struct {
	db     *db.DB
	router *chi.Mux
}

func NewHealthHandler(database *db.DB) *HealthHandler {
	router := chi.NewRouter()
	h := &HealthHandler{db: database, router: router}

	router.Get("/", h.handleHealth)
	return h
}

func (h *HealthHandler) Router() *chi.Mux {
	return h.router
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "healthy"}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			utils.WriteJSON(w, http.StatusServiceUnavailable, models.BaseResponse{Data: status})
			return
		}
		status["database"] = "ok"
	}

	utils.WriteJSON(w, http.StatusOK, models.BaseResponse{Data: status})
}
