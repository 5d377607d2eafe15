package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/middleware"
	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterAuthRoutes registers login, session and self-registration routes.
func (h *Handler) RegisterAuthRoutes(public *gin.RouterGroup, authed *gin.RouterGroup) {
	strict := middleware.AuthRateLimitMiddleware(h.Limiter, h.Config.RateLimit)

	public.POST("/login", strict, h.login)
	public.POST("/register-non-user", strict, h.registerCustomer)
	public.GET("/refresh-token", strict, h.refreshToken)

	authed.GET("/logout", h.allow(services.ActionLogout), h.logout)
	authed.GET("/me", h.allow(services.ActionViewProfile), h.me)
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.RespondError(c, fmt.Errorf("%w: email and password are required", services.ErrValidation))
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	pair, err := h.Tokens.IssuePair(user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setTokenCookies(c, pair)

	utils.RespondOK(c, http.StatusOK, "Login successful", gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
		"user":         user,
	})
}

func (h *Handler) registerCustomer(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	avatar, err := h.uploadImage(c, "avatar", "avatars")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if avatar != nil {
		in.Avatar = avatar.URL
	}

	user, err := h.Users.RegisterCustomer(c.Request.Context(), in)
	if err != nil {
		if avatar != nil {
			h.discardImage(avatar.PublicID)
		}
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Account created successfully", gin.H{"user": user})
}

// refreshToken reads the refresh cookie and rotates both tokens.
func (h *Handler) refreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshCookie)
	pair, user, err := h.Tokens.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setTokenCookies(c, pair)
	utils.RespondOK(c, http.StatusOK, "Access token refreshed", gin.H{
		"accessToken": pair.AccessToken,
		"expiresIn":   pair.ExpiresIn,
		"user":        user,
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.clearTokenCookies(c)
	utils.RespondOK(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) me(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	user, err := h.Users.FindByID(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"user": user})
}
