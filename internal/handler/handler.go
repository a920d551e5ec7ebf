package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jack/golang-slug-link-service/internal/geo"
	"github.com/jack/golang-slug-link-service/internal/middleware"
	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/jack/golang-slug-link-service/internal/repository"
	"github.com/jack/golang-slug-link-service/internal/service"
)

var urlRE = regexp.MustCompile(`(?i)^https?://`)

type Handler struct {
	service    *service.LinkService
	geo        geo.Resolver
	static     http.Handler
	adminToken string

	// Optional connectivity probes for the detailed health endpoint.
	RedisHealth   func(context.Context) error
	ArchiveHealth func(context.Context) error
}

func NewHandler(svc *service.LinkService, staticDir, adminToken string) *Handler {
	return &Handler{
		service:    svc,
		static:     http.FileServer(http.Dir(staticDir)),
		adminToken: adminToken,
	}
}

func respondInternalError(c *gin.Context, message string) {
	// Store failures surface as a fixed shape; detail goes to the log only.
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": message,
	})
}

// CreateLink handles POST /. The write is a destructive overwrite: choosing
// a free code is the caller's job.
func (h *Handler) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	// Codes are canonicalized to lower case at the boundary; lookups are
	// case-insensitive everywhere else too.
	code := strings.ToLower(strings.TrimSpace(req.Code))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Short code is required",
		})
		return
	}
	if !urlRE.MatchString(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Only http/https URLs are allowed",
		})
		return
	}

	loc := h.geo.Resolve(c.Request.Header, c.ClientIP())
	creator := &model.Creator{IP: loc.IP, Loc: loc.Country}

	if err := h.service.Create(c.Request.Context(), code, &req, creator); err != nil {
		log.Printf("create link failed: code=%s ip=%s err=%v", code, c.ClientIP(), err)
		respondInternalError(c, "Failed to create link")
		return
	}

	c.JSON(http.StatusOK, model.CreateLinkResponse{OK: true, Code: code})
}

// Redirect resolves a slug and answers 302. The click itself is recorded off
// the response path.
func (h *Handler) Redirect(c *gin.Context, code string) {
	loc := h.geo.Resolve(c.Request.Header, c.ClientIP())
	entry := model.ClickLogEntry{
		T:   time.Now().UnixMilli(),
		IP:  loc.IP,
		Loc: loc.Country,
		Lat: loc.Lat,
		Lon: loc.Lon,
	}

	dest, err := h.service.Resolve(c.Request.Context(), code, entry)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Short link not found",
			})
			return
		}
		if errors.Is(err, repository.ErrLinkGone) {
			c.JSON(http.StatusGone, gin.H{
				"error":   "expired",
				"message": "This short link has expired",
			})
			return
		}
		log.Printf("redirect failed: code=%s ip=%s err=%v", code, c.ClientIP(), err)
		respondInternalError(c, "Failed to resolve link")
		return
	}

	c.Redirect(http.StatusFound, dest)
}

func (h *Handler) AdminList(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		log.Printf("admin list failed: err=%v", err)
		respondInternalError(c, "Failed to list links")
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *Handler) AdminStats(c *gin.Context) {
	code := strings.ToLower(c.Param("code"))

	stats, err := h.service.Stats(c.Request.Context(), code)
	if err != nil {
		log.Printf("admin stats failed: code=%s err=%v", code, err)
		respondInternalError(c, "Failed to retrieve stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) AdminDetail(c *gin.Context) {
	code := strings.ToLower(c.Param("code"))

	detail, err := h.service.Detail(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Short link not found",
			})
			return
		}
		log.Printf("admin detail failed: code=%s err=%v", code, err)
		respondInternalError(c, "Failed to retrieve detail")
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) AdminDelete(c *gin.Context) {
	code := strings.ToLower(c.Param("code"))

	if err := h.service.Delete(c.Request.Context(), code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Short link not found",
			})
			return
		}
		log.Printf("admin delete failed: code=%s err=%v", code, err)
		respondInternalError(c, "Failed to delete link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) HealthDetailed(c *gin.Context) {
	out := gin.H{"status": "healthy"}

	if h.RedisHealth != nil {
		out["redis"] = probe(c.Request.Context(), h.RedisHealth)
	}
	if h.ArchiveHealth != nil {
		out["archive"] = probe(c.Request.Context(), h.ArchiveHealth)
	}

	c.JSON(http.StatusOK, out)
}

func probe(ctx context.Context, check func(context.Context) error) string {
	if err := check(ctx); err != nil {
		return "unreachable"
	}
	return "connected"
}

// Dispatch classifies every request no explicit route claimed: OPTIONS,
// admin fallback, slug redirect, static assets, then 405. Classification
// depends only on method and path.
func (h *Handler) Dispatch(c *gin.Context) {
	path := c.Request.URL.Path
	method := c.Request.Method

	if method == http.MethodOptions {
		c.Status(http.StatusNoContent)
		return
	}

	// Unknown admin routes: auth still comes first, then a JSON 404.
	if strings.HasPrefix(path, "/api/") {
		if !middleware.TokenMatches(c.GetHeader(middleware.AdminTokenHeader), h.adminToken) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid admin token",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if method == http.MethodGet {
		code := strings.ToLower(strings.TrimPrefix(path, "/"))
		if service.CodeRE.MatchString(code) {
			h.Redirect(c, code)
			return
		}
		h.static.ServeHTTP(c.Writer, c.Request)
		return
	}

	c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
}
