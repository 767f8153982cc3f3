package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-checkout/internal/app"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/config"
	"github.com/noah-isme/toko-checkout/internal/repo"
)

func main() {
	var (
		migrate = flag.Bool("migrate", true, "apply pending migrations before seeding")
		dryRun  = flag.Bool("dry-run", false, "print the fixtures without writing them")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fixtures := repo.DefaultFixtures()
	if *dryRun {
		for _, p := range fixtures.Products {
			log.Printf("product %d %q %s", p.ID, p.Name, p.Price.StringFixed(2))
		}
		for _, c := range fixtures.Coupons {
			log.Printf("coupon %s %s %s", c.Code, c.Type, c.Value.String())
		}
		for _, t := range fixtures.Taxes {
			log.Printf("tax %s %s%%", t.CountryCode, t.Rate.String())
		}
		return
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if *migrate {
		if err := app.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := repo.Seed(ctx, tx, fixtures); err != nil {
		log.Fatalf("seed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}
	log.Printf("seeded %d products, %d coupons, %d taxes", len(fixtures.Products), len(fixtures.Coupons), len(fixtures.Taxes))

	if cfg.RedisURL == "" {
		return
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()
	purged, err := catalog.NewCache(client, cfg.CatalogCacheTTL).Purge(ctx)
	if err != nil {
		log.Fatalf("purge catalog cache: %v", err)
	}
	log.Printf("purged %d cached catalog entries", purged)
}
