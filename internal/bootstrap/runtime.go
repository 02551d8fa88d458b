// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/models"
	"blogapi/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a seed preset applied when the database has no users.
	// Only honoured outside production.
	SeedPreset string
}

// InitRuntime connects to DB and Redis and optionally seeds an empty development database.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedEmptyDatabase(cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return db, r, nil
}

func seedEmptyDatabase(cfg *config.Config, db *gorm.DB, preset string) error {
	if preset == "" || cfg.IsProduction() {
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	presets, err := seed.LoadPresets("")
	if err != nil {
		return err
	}
	p, err := seed.FindPreset(presets, preset)
	if err != nil {
		return err
	}
	summary, err := seed.NewSeeder(db, seed.Options{FastHash: true}).Run(context.Background(), p)
	if err != nil {
		return err
	}
	log.Printf("seeded empty database with preset %q (%d users, %d posts)", p.Name, summary.Users, summary.Posts)
	return nil
}
