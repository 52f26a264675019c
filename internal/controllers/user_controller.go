package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/vanbook/backend/internal/dtos"
	"github.com/vanbook/backend/internal/middleware"
	"github.com/vanbook/backend/internal/services"
	"github.com/vanbook/backend/internal/utils"
)

type UserController struct {
	userService services.UserService
}

func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	resp, err := c.userService.GetMe(r.Context(), user)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req dtos.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	resp, err := c.userService.UpdateProfile(r.Context(), user, req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
