// Package seed bootstraps non-production environments with a usable API
// key so local setups work out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	apikeydomain "github.com/smallbiznis/promolens/internal/apikey/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const devKeyID = "key_DEV"

// EnsureDevAPIKey inserts the configured raw key hashed with every scope
// the service knows, if it is not present yet. Never runs in production.
func EnsureDevAPIKey(db *gorm.DB, rawKey string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if rawKey == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	key := apikeydomain.APIKey{
		ID:    node.Generate(),
		KeyID: devKeyID,
		Name:  "development",
		Scopes: pq.StringArray{
			apikeydomain.ScopeReportsManage,
			apikeydomain.ScopeHooksWrite,
		},
		KeyHash:   apikeydomain.HashAPIKey(rawKey),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx := context.Background()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key_id"}},
			DoNothing: true,
		}).
		Create(&key).Error
}
