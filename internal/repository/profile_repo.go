package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/db"
)

// ProfileFilters narrows discovery results. Zero values (and the literal
// "all") mean "no constraint", so an empty location filter behaves the
// same as no filter at all.
type ProfileFilters struct {
	Gender   string
	Role     string
	Location string
}

// ProfileRepository provides data access for user profiles.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB
// connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Create inserts a profile row. The ID must already be set to the owning
// account id.
func (r *ProfileRepository) Create(ctx context.Context, profile *db.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID fetches one profile. Returns gorm.ErrRecordNotFound when
// absent.
func (r *ProfileRepository) GetByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByIDs fetches profiles for the given ids, keyed by id. Missing
// profiles are simply absent from the map, never an error.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]db.Profile, error) {
	out := make(map[uint64]db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// IncrementViews bumps the view counter of every given profile by one.
// A served discovery card counts as a view.
func (r *ProfileRepository) IncrementViews(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id IN ?", ids).
		UpdateColumn("stat_views", gorm.Expr("stat_views + 1")).Error
}

// IncrementLikes bumps the received-likes counter of one profile.
func (r *ProfileRepository) IncrementLikes(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		UpdateColumn("stat_likes", gorm.Expr("stat_likes + 1")).Error
}

// IncrementMatches bumps the match counter of both ends of a new pair.
func (r *ProfileRepository) IncrementMatches(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id IN ?", ids).
		UpdateColumn("stat_matches", gorm.Expr("stat_matches + 1")).Error
}

// List returns all profiles except excludeID, narrowed by filters.
//
// Behavior:
//   - Gender/Role: exact match when set.
//   - Location: case-insensitive substring match; whitespace-only input
//     is ignored.
//   - Full-table semantics, newest first. No pagination: discovery decks
//     stay small by design.
func (r *ProfileRepository) List(ctx context.Context, excludeID uint64, filters ProfileFilters) ([]db.Profile, error) {
	query := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id <> ?", excludeID)

	if filters.Gender != "" && filters.Gender != "all" {
		query = query.Where("gender = ?", filters.Gender)
	}
	if filters.Role != "" && filters.Role != "all" {
		query = query.Where("role = ?", filters.Role)
	}
	if loc := strings.TrimSpace(filters.Location); loc != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}

	var profiles []db.Profile
	if err := query.Order("created_at DESC, id DESC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
