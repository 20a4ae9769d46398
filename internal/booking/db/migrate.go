package db

import (
	"context"
	"log"
	"time"

	"github.com/uptrace/bun"

	"ms-support/internal/models"
)

// Migrate creates the service tables through bun. Development helper; real
// deployments run the SQL migrations instead.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.SupportBooking)(nil),
		(*models.PaymentAuditEntry)(nil),
		(*models.SupportCategory)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("create table failed for %T: %v", m, err)
		}
	}

	log.Println("✅ support tables created")

	// Seed the category catalog so the booking surface has something to show
	categories := []models.SupportCategory{
		{CategoryID: "cat-debugging", Name: "Debugging", Description: "Track down and fix defects in your codebase", Icon: "bug", CreatedAt: time.Now()},
		{CategoryID: "cat-cloud-migration", Name: "Cloud Migration", Description: "Plan and execute a move to cloud infrastructure", Icon: "cloud", CreatedAt: time.Now()},
		{CategoryID: "cat-performance", Name: "Performance Tuning", Description: "Profile and optimize slow services and queries", Icon: "speed", CreatedAt: time.Now()},
		{CategoryID: "cat-security", Name: "Security Review", Description: "Audit your stack for vulnerabilities and hardening", Icon: "shield", CreatedAt: time.Now()},
		{CategoryID: "cat-architecture", Name: "Architecture Consulting", Description: "Design reviews and system architecture guidance", Icon: "blueprint", CreatedAt: time.Now()},
	}
	if _, err := db.NewInsert().Model(&categories).Ignore().Exec(ctx); err != nil {
		log.Printf("category seed skipped: %v", err)
	} else {
		log.Println("✅ support categories seeded")
	}
}
