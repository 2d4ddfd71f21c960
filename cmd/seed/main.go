// Command seed fills the database with demo users and content items.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/database"
	"contentflow/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	perUser := flag.Int("items", defaults.ItemsPerUser, "Content items per user")
	shouldClean := flag.Bool("clean", false, "Delete existing users and content first")
	randSeed := flag.Int64("rand-seed", 0, "Random seed for reproducible data (0 = random)")
	userID := flag.String("user", "", "Add items to this identity-provider user id instead of generating users")
	horizon := flag.Duration("horizon", defaults.Horizon, "How far ahead scheduled items may fall")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	opts := seed.Options{
		Users:        *numUsers,
		ItemsPerUser: *perUser,
		Clean:        *shouldClean,
		RandSeed:     *randSeed,
		Horizon:      *horizon,
	}
	seeder := seed.NewSeeder(db, opts)

	if *userID != "" {
		n, err := seeder.SeedUser(ctx, *userID, *perUser)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("Done: %d content items for %s", n, *userID)
		return
	}

	res, err := seeder.Run(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	for _, u := range res.Users {
		log.Printf("seeded user %s <%s>", u.ID, u.Email)
	}
	log.Printf("Done: %d users, %d content items", len(res.Users), res.Items)
}
