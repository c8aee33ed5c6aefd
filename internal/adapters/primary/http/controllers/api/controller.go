package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admin/astro-agent/internal/adapters/primary/http/middlewares"
	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/ports/usecase"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
)

// GuestIssuer заводит гостевую сессию
type GuestIssuer interface {
	IssueGuest() (userID string, token string, err error)
}

type Controller struct {
	guests   GuestIssuer
	tokens   usecase.ITokenValidator
	profiles service.IProfileService
	memory   service.IMemoryService
	userData service.IUserDataService
	Log      *slog.Logger
}

func New(
	guests GuestIssuer,
	tokens usecase.ITokenValidator,
	profiles service.IProfileService,
	memory service.IMemoryService,
	userData service.IUserDataService,
	log *slog.Logger,
) *Controller {
	return &Controller{
		guests:   guests,
		tokens:   tokens,
		profiles: profiles,
		memory:   memory,
		userData: userData,
		Log:      log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/auth/guest", c.issueGuest)

	authed := v1.Group("", middlewares.JWTAuth(c.tokens, c.Log))
	authed.GET("/profile", c.getProfile)
	authed.GET("/profile/onboarding", c.getOnboarding)
	authed.GET("/memories/stats", c.memoryStats)
	authed.GET("/memories/search", c.searchMemories)
	authed.POST("/memories/consolidate", c.consolidate)
	authed.GET("/memories/export", c.export)
	authed.DELETE("/users/me", c.erase)
}

func (c *Controller) issueGuest(ctx *gin.Context) {
	userID, token, err := c.guests.IssueGuest()
	if err != nil {
		c.Log.Error("failed to issue guest token", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	if _, err := c.profiles.GetOrCreate(ctx.Request.Context(), userID); err != nil {
		c.Log.Error("failed to create guest profile", "error", err, "user_id", userID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"user_id": userID, "token": token})
}

func (c *Controller) getProfile(ctx *gin.Context) {
	profile, err := c.profiles.Get(ctx.Request.Context(), middlewares.UserID(ctx))
	if err != nil {
		c.fail(ctx, "failed to get profile", err)
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

// onboardingResponse состояние онбординга с подсказкой следующего вопроса
type onboardingResponse struct {
	domain.OnboardingState
	Complete     bool     `json:"complete"`
	Percentage   int      `json:"percentage"`
	NextQuestion string   `json:"next_question,omitempty"`
	NextPrompt   string   `json:"next_prompt,omitempty"`
	Missing      []string `json:"missing_required"`
	HasChart     bool     `json:"has_chart"`
}

func (c *Controller) getOnboarding(ctx *gin.Context) {
	profile, err := c.profiles.GetOrCreate(ctx.Request.Context(), middlewares.UserID(ctx))
	if err != nil {
		c.fail(ctx, "failed to get profile", err)
		return
	}
	state := onboarding.Evaluate(profile)
	resp := onboardingResponse{
		OnboardingState: state,
		Complete:        state.IsComplete(),
		Percentage:      state.CompletionPercentage(),
		Missing:         []string{},
		HasChart:        profile.HasChart(),
	}
	if next := state.NextQuestion(); next != "" {
		resp.NextQuestion = string(next)
		resp.NextPrompt = next.FriendlyPrompt()
	}
	for _, f := range state.MissingRequired() {
		resp.Missing = append(resp.Missing, string(f))
	}
	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) memoryStats(ctx *gin.Context) {
	stats, err := c.memory.Stats(ctx.Request.Context(), middlewares.UserID(ctx))
	if err != nil {
		c.fail(ctx, "failed to get memory stats", err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *Controller) searchMemories(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit := 5
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 20 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 20"})
			return
		}
		limit = n
	}
	results, err := c.memory.Search(ctx.Request.Context(), middlewares.UserID(ctx), query, limit)
	if err != nil {
		c.fail(ctx, "failed to search memories", err)
		return
	}
	if results == nil {
		results = []domain.MemorySearchResult{}
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

func (c *Controller) consolidate(ctx *gin.Context) {
	removed, err := c.memory.Consolidate(ctx.Request.Context(), middlewares.UserID(ctx))
	if err != nil {
		c.fail(ctx, "failed to consolidate memories", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (c *Controller) export(ctx *gin.Context) {
	url, err := c.userData.Export(ctx.Request.Context(), middlewares.UserID(ctx))
	if err != nil {
		c.fail(ctx, "failed to export user data", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

func (c *Controller) erase(ctx *gin.Context) {
	if err := c.userData.Erase(ctx.Request.Context(), middlewares.UserID(ctx)); err != nil {
		c.fail(ctx, "failed to erase user data", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// fail переводит доменные ошибки в HTTP статусы
func (c *Controller) fail(ctx *gin.Context, msg string, err error) {
	userID := middlewares.UserID(ctx)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, domain.ErrExportDisabled):
		ctx.JSON(http.StatusNotImplemented, gin.H{"error": "data export is not configured"})
	default:
		c.Log.Error(msg, "error", err, "user_id", userID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
