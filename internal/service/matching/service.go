package matching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/repository"
	"github.com/coeurdepaille/matching-service/internal/utils/pagination"
)

// LikeStatus is the outcome of a like submission.
type LikeStatus string

const (
	StatusLiked LikeStatus = "LIKED"
	StatusMatch LikeStatus = "MATCH"
)

// LikeResult reports what a like produced. ConversationID is set on
// MATCH only.
type LikeResult struct {
	Status         LikeStatus `json:"status"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// AdmirerView is one admirer entry: the liking user's profile plus when
// the like was made.
type AdmirerView struct {
	Profile db.Profile `json:"profile"`
	LikedAt time.Time  `json:"liked_at"`
}

// Service implements the matching core: discovery, like/pass submission,
// mutual-match detection and admirer computation.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	likeRepo    *repository.LikeRepository
	convRepo    *repository.ConversationRepository

	// afterLikeInsert runs between the committed edge write and the
	// mutuality check. Nil outside tests; tests use it to interleave a
	// concurrent reciprocal like.
	afterLikeInsert func()
}

// NewService creates the matching service with dependencies from
// AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		likeRepo:    repository.NewLikeRepository(appCtx.DB),
		convRepo:    repository.NewConversationRepository(appCtx.DB),
	}
}

// ListProfiles returns the discovery deck for a user: every profile but
// their own, narrowed by the optional filters.
//
// Read policy: a store failure is logged and degrades to an empty deck,
// so the client always has something renderable.
func (s *Service) ListProfiles(ctx context.Context, callerID uint64, filters repository.ProfileFilters) []db.Profile {
	profiles, err := s.profileRepo.List(ctx, callerID, filters)
	if err != nil {
		s.appCtx.Logger.Error("ListProfiles failed", "user_id", callerID, "err", err)
		return []db.Profile{}
	}
	if profiles == nil {
		profiles = []db.Profile{}
	}

	// every served card counts as a view
	ids := make([]uint64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	if err := s.profileRepo.IncrementViews(ctx, ids); err != nil {
		s.appCtx.Logger.Warn("view counter update failed", "user_id", callerID, "err", err)
	}

	return profiles
}

// GetProfile fetches a single profile.
func (s *Service) GetProfile(ctx context.Context, id uint64) (*db.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile %d", id)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return profile, nil
}

// Like records caller -> target interest and detects a mutual match.
//
// Behavior:
//   - Self-likes are rejected; the target profile must exist.
//   - The like edge is committed on its own before the reverse-edge
//     lookup runs. Two users liking each other concurrently each commit
//     their insert first, so whichever mutuality test runs last sees
//     both edges and at least one caller detects the match. A single
//     wrapping transaction would hide the uncommitted edge from the
//     peer's non-locking read and let both calls miss each other.
//   - On mutuality the pair conversation is created through the unique
//     normalized-pair index; a concurrent duplicate is a no-op and both
//     callers resolve to the same conversation.
//   - A repeated like re-runs the mutuality test but writes nothing, so
//     liking is idempotent and can never produce a second conversation.
//
// Example:
//
//	res, err := svc.Like(ctx, 1, 2) // res.Status == StatusLiked or StatusMatch
func (s *Service) Like(ctx context.Context, callerID, targetID uint64) (*LikeResult, error) {
	s.appCtx.Logger.Debug("Like called", "author", callerID, "target", targetID)

	if callerID == 0 {
		return nil, apperr.ErrAuthRequired
	}
	if callerID == targetID {
		return nil, apperr.Validation("cannot like yourself")
	}
	if _, err := s.GetProfile(ctx, targetID); err != nil {
		return nil, err
	}

	inserted, err := s.likeRepo.CreateLike(ctx, callerID, targetID)
	if err != nil {
		s.appCtx.Logger.Error("Like failed", "author", callerID, "target", targetID, "err", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if inserted {
		if err := s.profileRepo.IncrementLikes(ctx, targetID); err != nil {
			s.appCtx.Logger.Warn("like counter update failed", "target", targetID, "err", err)
		}
	}

	if s.afterLikeInsert != nil {
		s.afterLikeInsert()
	}

	result := &LikeResult{Status: StatusLiked}
	mutual, err := s.likeRepo.HasLiked(ctx, targetID, callerID)
	if err != nil {
		s.appCtx.Logger.Error("mutuality check failed", "author", callerID, "target", targetID, "err", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if mutual {
		conv, created, err := s.convRepo.EnsureForPair(ctx, callerID, targetID)
		if err != nil {
			s.appCtx.Logger.Error("conversation create failed", "author", callerID, "target", targetID, "err", err)
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
		}
		result.Status = StatusMatch
		result.ConversationID = &conv.ID
		if created {
			s.appCtx.Logger.Info("match created",
				"conversation_id", conv.ID, "user_a", callerID, "user_b", targetID)
			if err := s.profileRepo.IncrementMatches(ctx, callerID, targetID); err != nil {
				s.appCtx.Logger.Warn("match counter update failed", "err", err)
			}
		}
	}

	// The target's admirer set changed; on match the caller's did too.
	_ = s.appCtx.RedisCache.InvalidateAdmirerCount(ctx, targetID)
	if result.Status == StatusMatch {
		_ = s.appCtx.RedisCache.InvalidateAdmirerCount(ctx, callerID)
	}

	return result, nil
}

// Pass records caller -> target disinterest. Passes never trigger
// matching and never block a later like from the other party.
//
// Write policy: kept permissive like the original client — a store
// failure is logged and swallowed, a pass is not worth a user-facing
// error.
func (s *Service) Pass(ctx context.Context, callerID, targetID uint64) error {
	if callerID == 0 {
		return apperr.ErrAuthRequired
	}
	if callerID == targetID {
		return apperr.Validation("cannot pass on yourself")
	}

	if err := s.likeRepo.CreatePass(ctx, callerID, targetID); err != nil {
		s.appCtx.Logger.Error("Pass failed", "author", callerID, "target", targetID, "err", err)
	}
	return nil
}

// ListAdmirers returns profiles of users who like the caller and do not
// yet share a conversation with them, newest like first.
//
// Behavior:
//   - Matched users are excluded: once a conversation exists the pair
//     lives in the conversation list instead.
//   - A liker whose profile is missing degrades to the "Utilisateur"
//     placeholder rather than an error.
//   - Cursor-paginated; a bad token is a validation error, a store
//     failure degrades to an empty page.
func (s *Service) ListAdmirers(ctx context.Context, callerID uint64, paginationToken *string, limit int) ([]AdmirerView, *string, error) {
	if callerID == 0 {
		return nil, nil, apperr.ErrAuthRequired
	}
	if limit <= 0 {
		limit = 20
	}

	likes, nextToken, err := s.likeRepo.GetAdmirers(ctx, callerID, paginationToken, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, nil, apperr.Validation("invalid pagination token")
		}
		s.appCtx.Logger.Error("ListAdmirers failed", "user_id", callerID, "err", err)
		return []AdmirerView{}, nil, nil
	}

	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.AuthorID)
	}
	profiles, err := s.profileRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.appCtx.Logger.Error("ListAdmirers profile fetch failed", "user_id", callerID, "err", err)
		return []AdmirerView{}, nil, nil
	}

	views := make([]AdmirerView, 0, len(likes))
	for _, l := range likes {
		profile, ok := profiles[l.AuthorID]
		if !ok {
			profile = placeholderProfile(l.AuthorID)
		}
		views = append(views, AdmirerView{Profile: profile, LikedAt: l.CreatedAt})
	}

	return views, nextToken, nil
}

// CountAdmirers returns the caller's admirer count.
// Cache-first strategy:
//  1. Attempts to read from Redis (admirers:count:userID).
//  2. On miss, falls back to the store and repopulates the cache with a
//     1h TTL.
func (s *Service) CountAdmirers(ctx context.Context, callerID uint64) (int64, error) {
	if callerID == 0 {
		return 0, apperr.ErrAuthRequired
	}

	if n, ok, err := s.appCtx.RedisCache.GetAdmirerCount(ctx, callerID); err == nil && ok {
		return n, nil
	}

	count, err := s.likeRepo.CountAdmirers(ctx, callerID)
	if err != nil {
		s.appCtx.Logger.Error("CountAdmirers failed", "user_id", callerID, "err", err)
		return 0, nil
	}

	if err := s.appCtx.RedisCache.SetAdmirerCount(ctx, callerID, count); err != nil {
		s.appCtx.Logger.Warn("failed to cache admirer count", "user_id", callerID, "err", err)
	}

	return count, nil
}

// placeholderProfile stands in for a liker whose profile document is
// gone. Mirrors the client's "Utilisateur" fallback.
func placeholderProfile(id uint64) db.Profile {
	return db.Profile{
		ID:   id,
		Name: "Utilisateur",
	}
}

// ParseUserID converts a path parameter into a user id.
func ParseUserID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("user id must be a positive integer")
	}
	return id, nil
}
