package controllers

import (
	"net/http"

	"github.com/vanbook/backend/internal/app"
	"github.com/vanbook/backend/internal/utils"
)

type HealthController struct {
	app *app.App
}

func NewHealthController(app *app.App) *HealthController {
	return &HealthController{app: app}
}

type healthCheckResponse struct {
	Status string `json:"status"`
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := c.app.Ping(r.Context()); err != nil {
		utils.Logger.WithError(err).Error("Database unreachable")
		utils.RespondErrorWithCode(
			w,
			http.StatusServiceUnavailable,
			utils.ErrCodeInternal,
			"Database unreachable",
			nil,
			err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, healthCheckResponse{Status: "OK"})
}
