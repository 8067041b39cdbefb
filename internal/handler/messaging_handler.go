package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/server"
	"github.com/coeurdepaille/matching-service/internal/service/messaging"
)

// MessagingHandler exposes conversation and message endpoints.
type MessagingHandler struct {
	svc *messaging.Service
	log *slog.Logger
}

// NewMessagingHandler creates the handler.
func NewMessagingHandler(svc *messaging.Service, log *slog.Logger) *MessagingHandler {
	return &MessagingHandler{svc: svc, log: log}
}

// Register mounts the messaging routes. All of them are caller-scoped.
func (h *MessagingHandler) Register(_, authed *gin.RouterGroup) {
	authed.GET("/conversations", h.listConversations)
	authed.GET("/conversations/:id/messages", h.getMessages)
	authed.POST("/conversations/:id/messages", h.sendMessage)
}

func (h *MessagingHandler) listConversations(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}

	views := h.svc.ListConversations(c.Request.Context(), callerID)
	server.OK(c, gin.H{"conversations": views})
}

func (h *MessagingHandler) getMessages(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		server.FailErr(c, apperr.Validation("invalid conversation id"))
		return
	}

	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, nextToken, err := h.svc.GetMessages(c.Request.Context(), callerID, convID, token, limit)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	resp := gin.H{"messages": msgs}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	server.OK(c, resp)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *MessagingHandler) sendMessage(c *gin.Context) {
	callerID, ok := server.UserID(c)
	if !ok {
		server.FailErr(c, apperr.ErrAuthRequired)
		return
	}
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		server.FailErr(c, apperr.Validation("invalid conversation id"))
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.FailErr(c, apperr.Validation("invalid request body"))
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), callerID, convID, req.Text)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, msg)
}
