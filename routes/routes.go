package routes

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"servicesync-server/config"
	"servicesync-server/media"
	"servicesync-server/middleware"
	"servicesync-server/services"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Config    *config.Config
	Tokens    *services.TokenAuthority
	Policy    services.Policy
	Users     *services.UserService
	Requests  *services.RequestService
	Lifecycle *services.LifecycleService
	Catalog   *services.CatalogService
	Feedback  *services.FeedbackService
	Media     media.Store
	Limiter   *middleware.RateLimiter
}

type Handler struct {
	Dependencies
}

// NewRouter assembles the middleware stack and every API route.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Policy == nil {
		deps.Policy = services.DefaultPolicy()
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter()
	}
	if deps.Media == nil {
		deps.Media = media.Disabled{}
	}
	h := &Handler{Dependencies: deps}
	cfg := deps.Config

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware(deps.Limiter, cfg.RateLimit))
	router.Use(middleware.AuditLogMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "ServiceSync server is running",
			"time":    time.Now().UTC(),
		})
	})

	api := router.Group("/api/v1")
	authed := api.Group("", middleware.AuthMiddleware(deps.Tokens))

	h.RegisterAuthRoutes(api, authed)
	h.RegisterUserRoutes(authed)
	h.RegisterCatalogRoutes(authed)
	h.RegisterRequestRoutes(authed)
	h.RegisterFeedbackRoutes(authed)
	h.RegisterMediaRoutes(api)

	return router
}

// allow is the per-route policy check.
func (h *Handler) allow(action services.Action) gin.HandlerFunc {
	return middleware.Authorize(h.Policy, action)
}

func actorFrom(c *gin.Context) (services.Actor, error) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return services.Actor{}, services.ErrTokenAbsent
	}
	return actor, nil
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", services.ErrValidation, name)
	}
	return uint(id), nil
}

func bindError(err error) error {
	return fmt.Errorf("%w: %v", services.ErrValidation, err)
}

// discardImage removes an asset after the write that referenced it failed
// or replaced it. Failures are only logged.
func (h *Handler) discardImage(publicID string) {
	if publicID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Media.Delete(ctx, publicID); err != nil {
		log.Printf("⚠️ Failed to delete image %s: %v", publicID, err)
	}
}

// uploadImage stores the optional multipart file in field. A nil asset
// means no file was sent.
func (h *Handler) uploadImage(c *gin.Context, field, folder string) (*media.Asset, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, bindError(err)
	}
	asset, err := media.UploadFile(c.Request.Context(), h.Media, header, folder)
	if err != nil {
		switch err {
		case media.ErrInvalidImage, media.ErrDisabled:
			return nil, fmt.Errorf("%w: %v", services.ErrValidation, err)
		}
		return nil, err
	}
	return asset, nil
}

func (h *Handler) setTokenCookies(c *gin.Context, pair *services.TokenPair) {
	h.sameSite(c)
	secure := h.Config.Cookie.Secure
	c.SetCookie(accessCookie, pair.AccessToken, int(h.Tokens.AccessTTL().Seconds()), "/", h.Config.Cookie.Domain, secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, int(h.Tokens.RefreshTTL().Seconds()), "/", h.Config.Cookie.Domain, secure, true)
}

// clearTokenCookies overwrites both cookies with immediately expiring values.
func (h *Handler) clearTokenCookies(c *gin.Context) {
	h.sameSite(c)
	secure := h.Config.Cookie.Secure
	c.SetCookie(accessCookie, "", -1, "/", h.Config.Cookie.Domain, secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", h.Config.Cookie.Domain, secure, true)
}

func (h *Handler) sameSite(c *gin.Context) {
	if h.Config.Cookie.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
}
