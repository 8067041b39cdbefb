package matching_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/cache"
	"github.com/coeurdepaille/matching-service/internal/config"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/repository"
	"github.com/coeurdepaille/matching-service/internal/service/matching"
)

//
// Test helpers
//

// seedProfiles inserts three deterministic profiles:
//   - 1: Julien (male, farmer, Normandie)
//   - 2: Marie (female, farmer, Bretagne)
//   - 3: Claire (female, admirer, Auvergne)
func seedProfiles(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	profiles := []db.Profile{
		{ID: 1, Name: "Julien", Gender: "male", Role: "farmer", Location: "Normandie", Badges: []string{"Bio"}},
		{ID: 2, Name: "Marie", Gender: "female", Role: "farmer", Location: "Bretagne", Badges: []string{"Permaculture"}},
		{ID: 3, Name: "Claire", Gender: "female", Role: "admirer", Location: "Auvergne", Badges: []string{"Nouveau"}},
	}
	require.NoError(t, gdb.Create(&profiles).Error)
}

// setupService spins up an in-memory SQLite DB, applies migrations,
// seeds profiles, starts a miniredis, and wires everything into a
// matching service. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*matching.Service, *gorm.DB) {
	t.Helper()

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
	seedProfiles(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return matching.NewService(appCtx), dbase
}

//
// Tests
//

// TestLikeThenReciprocalLikeMatches walks the core scenario: user 1
// likes user 2 (LIKED), user 2 likes back (MATCH), and exactly one
// conversation exists for the pair.
func TestLikeThenReciprocalLikeMatches(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	res, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, matching.StatusLiked, res.Status)
	assert.Nil(t, res.ConversationID)

	var convCount int64
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&convCount).Error)
	assert.Equal(t, int64(0), convCount)

	res, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, matching.StatusMatch, res.Status)
	require.NotNil(t, res.ConversationID)

	var convs []db.Conversation
	require.NoError(t, dbase.Find(&convs).Error)
	require.Len(t, convs, 1)
	assert.Equal(t, uint64(1), convs[0].UserLowID)
	assert.Equal(t, uint64(2), convs[0].UserHighID)
}

// TestLikeAfterMatchIsStable ensures a repeated like after the match
// still reports MATCH with the same conversation and never duplicates
// anything.
func TestLikeAfterMatchIsStable(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	first, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, matching.StatusMatch, first.Status)

	again, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, matching.StatusMatch, again.Status)
	require.NotNil(t, again.ConversationID)
	assert.Equal(t, *first.ConversationID, *again.ConversationID)

	var likeCount, convCount int64
	require.NoError(t, dbase.Model(&db.Like{}).Count(&likeCount).Error)
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&convCount).Error)
	assert.Equal(t, int64(2), likeCount)
	assert.Equal(t, int64(1), convCount)
}

func TestLikeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	// self-like
	_, err := svc.Like(ctx, 1, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// unknown target
	_, err = svc.Like(ctx, 1, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// unauthenticated
	_, err = svc.Like(ctx, 0, 2)
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
}

// TestAdmirerDirection checks the edge direction: after user 1 likes
// user 2, user 1 appears in user 2's admirers and not the other way
// around.
func TestAdmirerDirection(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	admirers, _, err := svc.ListAdmirers(ctx, 2, nil, 10)
	require.NoError(t, err)
	require.Len(t, admirers, 1)
	assert.Equal(t, uint64(1), admirers[0].Profile.ID)
	assert.Equal(t, "Julien", admirers[0].Profile.Name)

	admirers, _, err = svc.ListAdmirers(ctx, 1, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, admirers)
}

// TestAdmirersExcludeMatched ensures a pair disappears from both admirer
// lists once their conversation exists.
func TestAdmirersExcludeMatched(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	for _, userID := range []uint64{1, 2} {
		admirers, _, err := svc.ListAdmirers(ctx, userID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, admirers)
	}
}

// TestAdmirerWithMissingProfile degrades to the placeholder instead of
// failing when a liker's profile row is gone.
func TestAdmirerWithMissingProfile(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	like := db.Like{AuthorID: 42, TargetID: 1} // author 42 has no profile
	require.NoError(t, dbase.Create(&like).Error)

	admirers, _, err := svc.ListAdmirers(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, admirers, 1)
	assert.Equal(t, "Utilisateur", admirers[0].Profile.Name)
}

// TestPassIsIdempotentAndNeverMatches: passing twice never creates a
// conversation, and a pass does not block the other party's later like.
func TestPassIsIdempotentAndNeverMatches(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	require.NoError(t, svc.Pass(ctx, 1, 3))
	require.NoError(t, svc.Pass(ctx, 1, 3))

	var convCount int64
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&convCount).Error)
	assert.Equal(t, int64(0), convCount)

	// user 3 can still like user 1; it stays one-directional
	res, err := svc.Like(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, matching.StatusLiked, res.Status)

	admirers, _, err := svc.ListAdmirers(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, admirers, 1)
	assert.Equal(t, uint64(3), admirers[0].Profile.ID)
}

func TestListProfilesFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	// no filters: everyone but the caller
	profiles := svc.ListProfiles(ctx, 1, repository.ProfileFilters{})
	require.Len(t, profiles, 2)
	for _, p := range profiles {
		assert.NotEqual(t, uint64(1), p.ID)
	}

	// exact gender match
	profiles = svc.ListProfiles(ctx, 3, repository.ProfileFilters{Gender: "male"})
	require.Len(t, profiles, 1)
	assert.Equal(t, "Julien", profiles[0].Name)

	// "all" behaves like no filter
	profiles = svc.ListProfiles(ctx, 1, repository.ProfileFilters{Gender: "all", Role: "all"})
	assert.Len(t, profiles, 2)

	// case-insensitive location substring
	profiles = svc.ListProfiles(ctx, 1, repository.ProfileFilters{Location: "breta"})
	require.Len(t, profiles, 1)
	assert.Equal(t, "Marie", profiles[0].Name)

	// empty location filter is identical to no location filter
	// (compare by id: every served deck bumps the view counters)
	withEmpty := svc.ListProfiles(ctx, 1, repository.ProfileFilters{Location: ""})
	without := svc.ListProfiles(ctx, 1, repository.ProfileFilters{})
	require.Len(t, withEmpty, len(without))
	for i := range without {
		assert.Equal(t, without[i].ID, withEmpty[i].ID)
	}
}

// TestProfileStatsCounters: served discovery cards bump views, a first
// like bumps the target's like counter (repeats don't), and a completed
// match bumps both match counters.
func TestProfileStatsCounters(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	reload := func(id uint64) db.ProfileStats {
		var p db.Profile
		require.NoError(t, dbase.First(&p, id).Error)
		return p.Stats
	}

	svc.ListProfiles(ctx, 1, repository.ProfileFilters{})
	assert.Equal(t, uint(1), reload(2).Views)
	assert.Equal(t, uint(1), reload(3).Views)
	assert.Equal(t, uint(0), reload(1).Views)

	// first like counts once, the repeat is a conflict no-op
	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(1), reload(2).Likes)

	// the reciprocal like completes the match and bumps both sides
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), reload(1).Likes)
	assert.Equal(t, uint(1), reload(1).Matches)
	assert.Equal(t, uint(1), reload(2).Matches)
}

// TestCountAdmirersCache verifies the cache-first counter: the second
// read is served from Redis, and a new like invalidates it.
func TestCountAdmirersCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	// first call → DB, second call → cache
	count, err := svc.CountAdmirers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = svc.CountAdmirers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// a new like drops the cached value
	_, err = svc.Like(ctx, 3, 2)
	require.NoError(t, err)

	count, err = svc.CountAdmirers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
