// Package handler exposes verification and attendance over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"faceattend/internal/attempts"
	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/face"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/logging"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/users"
)

// ImageStore fetches reference images and stores new ones.
type ImageStore interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	UploadBytes(ctx context.Context, data []byte, filename, publicID string) (*cloudinary.UploadResult, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// AuthConfig configures token issue and validation.
type AuthConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// DevIssue issues tokens without a password check.
	DevIssue bool
}

// Handler holds the collaborators of every endpoint. Images may be nil when
// no image store is configured; reference images are then fetched over
// plain HTTP and uploads are refused.
type Handler struct {
	Gate       *face.Gate
	Attendance attendance.Store
	Reconciler attendance.Reconciler
	Users      users.Store
	Images     ImageStore
	Queue      queue.Queue
	Attempts   attempts.Log
	Limiter    httpmiddleware.Limiter
	Auth       AuthConfig
	Health     map[string]HealthCheck
	Location   *time.Location
	Log        *zap.Logger
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) loc() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

func (h *Handler) log() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}

// Router builds the gin engine with middleware and all routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(h.log(), "/healthz", "/metrics"))
	r.Use(metrics.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	limit := func(c *gin.Context) { c.Next() }
	if h.Limiter != nil {
		limit = httpmiddleware.GinMiddleware(h.Limiter, func(err error) {
			h.log().Warn("rate limiter unavailable", zap.Error(err))
		})
	}

	v1 := r.Group("/v1")
	v1.POST("/auth/token", limit, h.IssueToken)

	authed := v1.Group("", auth.Bearer(h.Auth.SigningKey, h.Auth.Issuer), limit)
	authed.POST("/verify", h.Verify)
	authed.POST("/checkout", h.CheckOut)
	authed.GET("/attendance/me", h.MyAttendance)
	authed.GET("/attendance/me/attempts", h.MyAttempts)

	admin := authed.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/attendance", h.ListAttendance)
	admin.GET("/attendance/:email", h.UserAttendance)
	admin.POST("/users/:email/profile-picture", h.UploadProfilePicture)

	return r
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// ---------- Responses ----------

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// ---------- Health ----------

// Healthz reports every registered dependency; any failure is a 503.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if h.Gate != nil {
		body["models"] = h.Gate.ModelsState().String()
	}
	for name, check := range h.Health {
		healthy := check(ctx)
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
