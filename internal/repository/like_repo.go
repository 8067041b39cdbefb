package repository

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/utils/pagination"
)

// LikeRepository provides data access for the directed like and pass
// edges between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB
// connection (or transaction).
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// CreateLike appends the edge author -> target.
//
// Behavior:
//   - First like for the pair → row inserted, returns true.
//   - Repeated like → conflict no-op on the composite PK, returns false;
//     the original timestamp is preserved.
//
// Example:
//
//	repo.CreateLike(ctx, 1, 2) // user 1 likes user 2
func (r *LikeRepository) CreateLike(ctx context.Context, authorID, targetID uint64) (bool, error) {
	like := db.Like{AuthorID: authorID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasLiked checks whether author has an effective like edge toward
// target. This is the mutuality test and must stay a point query on the
// composite key, never a scan.
func (r *LikeRepository) HasLiked(ctx context.Context, authorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("author_id = ? AND target_id = ?", authorID, targetID).
		Count(&count).Error
	return count > 0, err
}

// CreatePass appends the edge author -> target in the pass namespace.
// Idempotent the same way CreateLike is; passes never match.
func (r *LikeRepository) CreatePass(ctx context.Context, authorID, targetID uint64) error {
	pass := db.Pass{AuthorID: authorID, TargetID: targetID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pass).Error
}

// GetAdmirers returns the like edges targeting the given user whose
// authors do NOT already share a conversation with them (one-directional
// likes only).
//
// Behavior:
//   - Ordered by created_at DESC, author_id DESC (deterministic).
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetAdmirers(ctx, 42, nil, 20) // first 20 admirers of user 42
func (r *LikeRepository) GetAdmirers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ?", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM conversations c
				WHERE (c.user_low_id = ? AND c.user_high_id = l.author_id)
				   OR (c.user_low_id = l.author_id AND c.user_high_id = ?)
			)`, targetID, targetID).
		Order("l.created_at DESC, l.author_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		lastAuthor, err := strconv.ParseUint(cursor.Ref, 10, 64)
		if err != nil {
			return nil, nil, pagination.ErrInvalidToken
		}
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.author_id < ?))",
			ts, ts, lastAuthor,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			Ref:         strconv.FormatUint(last.AuthorID, 10),
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountAdmirers returns how many one-directional likes target the user,
// with the same conversation exclusion as GetAdmirers. Used behind the
// Redis counter (DB is the fallback).
func (r *LikeRepository) CountAdmirers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ?", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM conversations c
				WHERE (c.user_low_id = ? AND c.user_high_id = l.author_id)
				   OR (c.user_low_id = l.author_id AND c.user_high_id = ?)
			)`, targetID, targetID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
