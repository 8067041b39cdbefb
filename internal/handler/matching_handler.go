package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/repository"
	"github.com/coeurdepaille/matching-service/internal/server"
	"github.com/coeurdepaille/matching-service/internal/service/matching"
)

// MatchingHandler exposes discovery, like/pass and admirer endpoints.
type MatchingHandler struct {
	svc *matching.Service
	log *slog.Logger
}

// NewMatchingHandler creates the handler.
func NewMatchingHandler(svc *matching.Service, log *slog.Logger) *MatchingHandler {
	return &MatchingHandler{svc: svc, log: log}
}

// Register mounts the matching routes. All of them are caller-scoped.
func (h *MatchingHandler) Register(_, authed *gin.RouterGroup) {
	authed.GET("/profiles", h.listProfiles)
	authed.GET("/profiles/me", h.myProfile)
	authed.POST("/profiles/:id/like", h.like)
	authed.POST("/profiles/:id/pass", h.pass)
	authed.GET("/admirers", h.listAdmirers)
	authed.GET("/admirers/count", h.countAdmirers)
}

func (h *MatchingHandler) listProfiles(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}

	filters := repository.ProfileFilters{
		Gender:   c.Query("gender"),
		Role:     c.Query("role"),
		Location: c.Query("location"),
	}
	profiles := h.svc.ListProfiles(c.Request.Context(), callerID, filters)
	server.OK(c, gin.H{"profiles": profiles})
}

func (h *MatchingHandler) myProfile(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}

	profile, err := h.svc.GetProfile(c.Request.Context(), callerID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, profile)
}

func (h *MatchingHandler) like(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}
	targetID, err := matching.ParseUserID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}

	result, err := h.svc.Like(c.Request.Context(), callerID, targetID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, result)
}

func (h *MatchingHandler) pass(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}
	targetID, err := matching.ParseUserID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}

	if err := h.svc.Pass(c.Request.Context(), callerID, targetID); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OKMessage(c, "passed", nil)
}

func (h *MatchingHandler) listAdmirers(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}

	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	admirers, nextToken, err := h.svc.ListAdmirers(c.Request.Context(), callerID, token, limit)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	resp := gin.H{"admirers": admirers}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	server.OK(c, resp)
}

func (h *MatchingHandler) countAdmirers(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}

	count, err := h.svc.CountAdmirers(c.Request.Context(), callerID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"count": count})
}
