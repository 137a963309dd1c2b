// Command main fills the configured database with demo users and posts.
package main

import (
	"flag"
	"log"

	"townsquare/internal/cache"
	"townsquare/internal/config"
	"townsquare/internal/database"
	"townsquare/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	maxDays := flag.Int("days", 90, "Spread post timestamps over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	log.Printf("Seeding %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	// Reaching Redis lets the seeder drop cached feed and profile entries.
	if rdb := cache.InitRedis(cfg.RedisURL); rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		Clean:    *shouldClean,
		MaxDays:  *maxDays,
		RandSeed: *randSeed,
	})
	if _, err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done. Every seeded account uses the password %q", seed.DemoPassword)
}
