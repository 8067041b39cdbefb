package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/server"
	"github.com/coeurdepaille/matching-service/internal/service/auth"
)

// AuthHandler exposes registration and session endpoints.
type AuthHandler struct {
	svc *auth.Service
	log *slog.Logger
}

// NewAuthHandler creates the handler.
func NewAuthHandler(svc *auth.Service, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(public, authed *gin.RouterGroup) {
	public.POST("/auth/register", h.register)
	public.POST("/auth/login", h.login)
	authed.POST("/auth/logout", h.logout)
}

type registerRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Name       string  `json:"name"`
	Gender     string  `json:"gender"`
	Role       string  `json:"role"`
	FarmType   *string `json:"farm_type"`
	Location   string  `json:"location"`
	Bio        string  `json:"bio"`
	Image      string  `json:"image"`
	Preference string  `json:"preference"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.FailErr(c, apperr.Validation("invalid request body"))
		return
	}

	session, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, auth.ProfileInput{
		Name:       req.Name,
		Gender:     req.Gender,
		Role:       req.Role,
		FarmType:   req.FarmType,
		Location:   req.Location,
		Bio:        req.Bio,
		Image:      req.Image,
		Preference: req.Preference,
	})
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.FailErr(c, apperr.Validation("invalid request body"))
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, session)
}

// logout acknowledges the sign-out. Sessions are stateless JWTs, so the
// client simply drops its token.
func (h *AuthHandler) logout(c *gin.Context) {
	server.OKMessage(c, "logged out", nil)
}
