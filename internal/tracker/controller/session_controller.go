package controller

import (
	"strings"
	"time"

	"codetrack/internal/tracker/auth"
	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/service"
	"codetrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SessionController handles sign-in, sign-out and manual sync.
type SessionController struct {
	authService *auth.Service
	engine      *service.Reconciler
	registry    *service.Registry
}

// NewSessionController creates a new SessionController.
func NewSessionController(authService *auth.Service, engine *service.Reconciler, registry *service.Registry) *SessionController {
	return &SessionController{authService: authService, engine: engine, registry: registry}
}

// Login validates the identity token and signs the session in. Sign-in
// triggers reconciliation through the auth listeners.
func (h *SessionController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		response.Unauthorized(c, "Identity token is required")
		return
	}

	identity, err := h.authService.SignIn(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SessionResponse{Identity: identity, SignedIn: true})
}

// Logout signs the session out. Local state is kept.
func (h *SessionController) Logout(c *gin.Context) {
	h.authService.SignOut(c.Request.Context())
	response.SuccessWithMessage(c, "Signed out", SessionResponse{SignedIn: false})
}

// Current reports the session state.
func (h *SessionController) Current(c *gin.Context) {
	identity := h.authService.CurrentIdentity()
	response.Success(c, SessionResponse{Identity: identity, SignedIn: identity != ""})
}

// Sync performs a manual push-then-pull reconciliation pass.
func (h *SessionController) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.engine.SyncNow(ctx); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.registry.Reload(ctx); err != nil {
		response.Error(c, err)
		return
	}

	_ = h.engine.AddActivity(ctx, model.Activity{
		Type:      model.ActivitySync,
		Text:      "Manual sync completed",
		Timestamp: time.Now().UTC(),
	})
	response.SuccessWithMessage(c, "Sync completed", SessionResponse{
		Identity: h.engine.Identity(),
		SignedIn: h.engine.Identity() != "",
	})
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
