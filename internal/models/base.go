package models

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for cached artifacts.
// Hash is derived from the artifact's logical key and is unique per table.
// Records are hard-deleted so that a key can be regenerated.
type Base struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"           bson:"_id"`
	Hash      string    `json:"-"        gorm:"type:char(64);uniqueIndex;not null" bson:"hash"`
	CreatedAt time.Time `json:"created"  bson:"created"`
	UpdatedAt time.Time `json:"modified" bson:"modified"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

// EnsureID assigns a UUID when the record has none yet.
func (b *Base) EnsureID() {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
}

// Touch stamps timestamps for backends without gorm's autoTime.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (b *Base) Meta() *Base { return b }

// Record is implemented by pointers to cached models.
type Record[V any] interface {
	*V
	Meta() *Base
	KeyHash() string
}

// HashKey hashes the parts of a logical key.
func HashKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%x", h)
}
