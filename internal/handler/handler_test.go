package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/cache"
	"github.com/coeurdepaille/matching-service/internal/config"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/handler"
	"github.com/coeurdepaille/matching-service/internal/server"
	"github.com/coeurdepaille/matching-service/internal/service/auth"
	"github.com/coeurdepaille/matching-service/internal/service/matching"
	"github.com/coeurdepaille/matching-service/internal/service/messaging"
)

//
// Test helpers
//

// envelope mirrors the JSON response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// setupRouter wires the full HTTP stack against an isolated sqlite DB
// and miniredis, exactly as cmd/server does.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(dbase, redisCache, logger, cfg)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	registrars := []server.Registrar{
		handler.NewAuthHandler(auth.NewService(appCtx, tokens), logger),
		handler.NewMatchingHandler(matching.NewService(appCtx), logger),
		handler.NewMessagingHandler(messaging.NewService(appCtx), logger),
	}
	return server.NewRouter(appCtx, tokens, registrars...)
}

// do performs a request and decodes the envelope.
func do(t *testing.T, engine *gin.Engine, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

// registerUser creates a user and returns its id and token.
func registerUser(t *testing.T, engine *gin.Engine, email, name, gender string) (uint64, string) {
	t.Helper()
	status, env := do(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "secret",
		"name":     name,
		"gender":   gender,
		"role":     "farmer",
		"location": "Normandie",
	})
	require.Equal(t, http.StatusOK, status)

	var session struct {
		UserID uint64 `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotZero(t, session.UserID)
	require.NotEmpty(t, session.Token)
	return session.UserID, session.Token
}

//
// Tests
//

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	engine := setupRouter(t)

	status, env := do(t, engine, http.MethodGet, "/api/v1/profiles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing authorization header", env.Message)

	status, _ = do(t, engine, http.MethodGet, "/api/v1/profiles", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

// TestLikeMatchMessageFlow drives the whole happy path over HTTP:
// register two users, like both ways, exchange a message.
func TestLikeMatchMessageFlow(t *testing.T) {
	engine := setupRouter(t)

	julienID, julienToken := registerUser(t, engine, "julien@ferme.fr", "Julien", "male")
	marieID, marieToken := registerUser(t, engine, "marie@ferme.fr", "Marie", "female")

	// Julien's deck shows Marie and not himself
	status, env := do(t, engine, http.MethodGet, "/api/v1/profiles", julienToken, nil)
	require.Equal(t, http.StatusOK, status)
	var deck struct {
		Profiles []db.Profile `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &deck))
	require.Len(t, deck.Profiles, 1)
	assert.Equal(t, marieID, deck.Profiles[0].ID)

	// one-way like
	status, env = do(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/profiles/%d/like", marieID), julienToken, nil)
	require.Equal(t, http.StatusOK, status)
	var likeRes struct {
		Status         string  `json:"status"`
		ConversationID *string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &likeRes))
	assert.Equal(t, "LIKED", likeRes.Status)
	assert.Nil(t, likeRes.ConversationID)

	// Julien appears among Marie's admirers
	status, env = do(t, engine, http.MethodGet, "/api/v1/admirers", marieToken, nil)
	require.Equal(t, http.StatusOK, status)
	var admirers struct {
		Admirers []struct {
			Profile db.Profile `json:"profile"`
		} `json:"admirers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &admirers))
	require.Len(t, admirers.Admirers, 1)
	assert.Equal(t, julienID, admirers.Admirers[0].Profile.ID)

	// reciprocal like → match
	status, env = do(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/profiles/%d/like", julienID), marieToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &likeRes))
	assert.Equal(t, "MATCH", likeRes.Status)
	require.NotNil(t, likeRes.ConversationID)
	convID := *likeRes.ConversationID

	// Marie opens the conversation
	status, env = do(t, engine, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", marieToken, gin.H{"text": "Bonjour"})
	require.Equal(t, http.StatusOK, status)

	// Julien reads it
	status, env = do(t, engine, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", julienToken, nil)
	require.Equal(t, http.StatusOK, status)
	var stream struct {
		Messages []db.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stream))
	require.Len(t, stream.Messages, 1)
	assert.Equal(t, "Bonjour", stream.Messages[0].Text)
	assert.Equal(t, marieID, stream.Messages[0].SenderID)

	// and sees the summary in his conversation list
	status, env = do(t, engine, http.MethodGet, "/api/v1/conversations", julienToken, nil)
	require.Equal(t, http.StatusOK, status)
	var convs struct {
		Conversations []struct {
			Other struct {
				Name string `json:"name"`
			} `json:"other"`
			LastMessage string `json:"last_message"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &convs))
	require.Len(t, convs.Conversations, 1)
	assert.Equal(t, "Marie", convs.Conversations[0].Other.Name)
	assert.Equal(t, "Bonjour", convs.Conversations[0].LastMessage)
}

func TestLikeValidationOverHTTP(t *testing.T) {
	engine := setupRouter(t)

	julienID, julienToken := registerUser(t, engine, "julien@ferme.fr", "Julien", "male")

	// self-like
	status, _ := do(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/profiles/%d/like", julienID), julienToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// unknown target
	status, _ = do(t, engine, http.MethodPost, "/api/v1/profiles/999/like", julienToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// malformed id
	status, _ = do(t, engine, http.MethodPost, "/api/v1/profiles/abc/like", julienToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSendMessageValidationOverHTTP(t *testing.T) {
	engine := setupRouter(t)

	_, token := registerUser(t, engine, "julien@ferme.fr", "Julien", "male")

	// malformed conversation id
	status, _ := do(t, engine, http.MethodPost, "/api/v1/conversations/not-a-uuid/messages", token, gin.H{"text": "Bonjour"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDuplicateRegistrationOverHTTP(t *testing.T) {
	engine := setupRouter(t)

	registerUser(t, engine, "julien@ferme.fr", "Julien", "male")

	status, _ := do(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "julien@ferme.fr",
		"password": "autre",
		"name":     "Julien Bis",
		"gender":   "male",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestHealth(t *testing.T) {
	engine := setupRouter(t)
	status, env := do(t, engine, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Message)
}
