package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/observability"
)

func Models() []any {
	return []any{
		&domain.Account{},
		&domain.VerificationCode{},
	}
}

func Migrate(db *gorm.DB) error {
	ctx := context.Background()
	start := time.Now()
	err := db.AutoMigrate(Models()...)
	observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return fmt.Errorf("auto migrate: %w", err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	return nil
}

// Plan lists the tables and columns Migrate would create. It never writes.
func Plan(db *gorm.DB) ([]string, error) {
	migrator := db.Migrator()
	var pending []string
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		table := stmt.Schema.Table
		if !migrator.HasTable(model) {
			pending = append(pending, "create table "+table)
			continue
		}
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" {
				continue
			}
			if !migrator.HasColumn(model, field.DBName) {
				pending = append(pending, fmt.Sprintf("add column %s.%s", table, field.DBName))
			}
		}
	}
	return pending, nil
}
