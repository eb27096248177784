package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/services"
)

// RegisterUserResponse carries the identifier of a newly registered user.
type RegisterUserResponse struct {
	UserID string `json:"userId" example:"3f1c2b9a-8d7e-4f6a-9b0c-1d2e3f4a5b6c"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a new user
// @Description Creates a user with a fresh identifier. Clients keep it and send it as userId.
// @Tags        Users
// @Produce     json
// @Success     201  {object}  handlers.RegisterUserResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users/register [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	id, err := h.users.Register(c.Request.Context())
	if err != nil {
		failFrom(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, RegisterUserResponse{UserID: id})
}

// UpdateProfileRequest is a partial profile update; omitted fields are kept.
type UpdateProfileRequest struct {
	Name      *string `json:"name" example:"Alex"`
	AvatarURL *string `json:"avatarUrl" example:"https://cdn.example.com/a.png"`
	Bio       *string `json:"bio" example:"Trying to sleep more."`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get a user profile
// @Tags        Users
// @Produce     json
// @Param       userId  path      string  true  "User ID"
// @Success     200     {object}  domain.User
// @Failure     404     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /users/profile/{userId} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	u, err := h.users.Profile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update a user profile
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       userId  path      string                         true  "User ID"
// @Param       body    body      handlers.UpdateProfileRequest  true  "Profile fields"
// @Success     200     {object}  domain.User
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     404     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /users/profile/{userId} [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), c.Param("userId"), services.ProfileInput{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}
