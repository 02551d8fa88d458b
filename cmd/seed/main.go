// Command main runs the database seeder for the blog.
package main

import (
	"context"
	"flag"
	"log"

	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/seed"
)

func main() {
	// Parse command line flags
	preset := flag.String("preset", "default", "Seed preset to apply (small, default, populated)")
	presetFile := flag.String("presets", "", "YAML file with custom presets (defaults to the built-in set)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build users and posts without writing them")
	maxDays := flag.Int("max-days", 90, "Spread post timestamps over this many days")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible runs (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets, err := seed.LoadPresets(*presetFile)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}
	p, err := seed.FindPreset(presets, *preset)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("Applying preset: %s (clean=%v, dry-run=%v)\n", p.Name, *shouldClean, *dryRun)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
		MaxDays:     *maxDays,
		RandomSeed:  *randomSeed,
		FastHash:    !cfg.IsProduction(),
	})
	summary, err := s.Run(context.Background(), p)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! users=%d posts=%d tags=%d follows=%d reactions=%d bookmarks=%d",
		summary.Users, summary.Posts, summary.Tags, summary.Follows, summary.Reactions, summary.Bookmarks)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
