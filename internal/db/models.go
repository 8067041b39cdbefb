package db

import (
	"time"

	"github.com/google/uuid"
)

// Account holds the credential side of a user. Profile data lives in
// Profile, keyed by the same ID.
type Account struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	LastLoginAt  time.Time `json:"last_login_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProfileStats are the counters shown on the profile page.
type ProfileStats struct {
	Views   uint `gorm:"default:0" json:"views"`
	Likes   uint `gorm:"default:0" json:"likes"`
	Matches uint `gorm:"default:0" json:"matches"`
}

// Profile is the public card of a user. ID equals the owning Account.ID;
// a profile is created at registration and only ever mutated by its owner.
type Profile struct {
	ID         uint64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name       string       `gorm:"size:128;not null" json:"name"`
	Gender     string       `gorm:"size:16;not null;index" json:"gender"`
	Role       string       `gorm:"size:32;not null;index" json:"role"`
	FarmType   *string      `gorm:"size:64" json:"farm_type,omitempty"` // only set when Role is "farmer"
	Location   string       `gorm:"size:128" json:"location"`
	Bio        string       `gorm:"type:text" json:"bio"`
	Image      string       `gorm:"size:512" json:"image"`
	Preference string       `gorm:"size:16" json:"preference"`
	Badges     []string     `gorm:"serializer:json" json:"badges"`
	Stats      ProfileStats `gorm:"embedded;embeddedPrefix:stat_" json:"stats"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// Like is a directed interest edge author -> target.
//
// Composite PK: (AuthorID, TargetID)
//   - A repeated like is a conflict no-op, so at most one effective
//     edge exists per ordered pair and the original timestamp survives.
//
// Index:
//   - idx_likes_target_created_author(target_id, created_at DESC, author_id)
//     serves "who likes me" admirer lists with cursor pagination.
//
// Rows are append-only, never mutated.
type Like struct {
	AuthorID  uint64    `gorm:"primaryKey;autoIncrement:false" json:"author_id"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_likes_target_created_author,priority:1" json:"target_id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_target_created_author,priority:2,sort:desc" json:"created_at"`
}

// Pass is a directed "not interested" edge author -> target. Same shape as
// Like but in its own table; passes never participate in matching.
type Pass struct {
	AuthorID  uint64    `gorm:"primaryKey;autoIncrement:false" json:"author_id"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false" json:"target_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Conversation is the channel created when two users like each other.
//
// The participant pair is stored normalized (UserLowID < UserHighID) under
// a unique index, so a conversation can only ever exist once per pair and
// concurrent match detection degrades to a conflict no-op instead of a
// duplicate row.
//
// LastMessage/LastMessageAt are a denormalized summary of the message
// stream, refreshed on every send.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserLowID     uint64     `gorm:"not null;uniqueIndex:idx_conversations_pair,priority:1;index" json:"user_low_id"`
	UserHighID    uint64     `gorm:"not null;uniqueIndex:idx_conversations_pair,priority:2;index" json:"user_high_id"`
	LastMessage   string     `gorm:"size:512" json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Message belongs to exactly one conversation. Append-only, ordered by
// (CreatedAt, ID) ascending within its conversation.
type Message struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:char(36);not null;index:idx_messages_conv_created,priority:1" json:"conversation_id"`
	SenderID       uint64    `gorm:"not null" json:"sender_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_messages_conv_created,priority:2" json:"created_at"`
}

// NormalizePair orders two user ids into the (low, high) form used by
// Conversation.
func NormalizePair(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uint64) uint64 {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

// HasParticipant reports whether userID is part of the conversation.
func (c *Conversation) HasParticipant(userID uint64) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}
