package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/repository"
)

// seedMessages inserts n messages one second apart and returns the
// conversation id.
func seedMessages(t *testing.T, dbase *gorm.DB, n int) uuid.UUID {
	t.Helper()
	convID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	repo := repository.NewMessageRepository(dbase)
	for i := 0; i < n; i++ {
		msg := db.Message{
			ID:             uuid.New(),
			ConversationID: convID,
			SenderID:       uint64(i%2 + 1),
			Text:           fmt.Sprintf("message %d", i+1),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(context.Background(), &msg))
	}
	return convID
}

func TestGetWindowAscendingOrder(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	convID := seedMessages(t, dbase, 3)

	msgs, next, err := repo.GetWindow(ctx, convID, nil, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Nil(t, next)

	assert.Equal(t, "message 1", msgs[0].Text)
	assert.Equal(t, "message 3", msgs[2].Text)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}

func TestGetWindowReturnsMostRecent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	convID := seedMessages(t, dbase, 5)

	// window of 2 → the two newest, still ascending
	msgs, next, err := repo.GetWindow(ctx, convID, nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "message 4", msgs[0].Text)
	assert.Equal(t, "message 5", msgs[1].Text)
	require.NotNil(t, next)

	// cursor pages back through older history
	msgs, next, err = repo.GetWindow(ctx, convID, next, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "message 2", msgs[0].Text)
	assert.Equal(t, "message 3", msgs[1].Text)
	require.NotNil(t, next)

	msgs, next, err = repo.GetWindow(ctx, convID, next, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "message 1", msgs[0].Text)
	assert.Nil(t, next)
}

func TestGetWindowEmptyConversation(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	msgs, next, err := repo.GetWindow(ctx, uuid.New(), nil, 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Nil(t, next)
}
