package main

import (
	"log"

	"github.com/lxhmx/text2sql/internal/config"
	"github.com/lxhmx/text2sql/internal/model"
	"github.com/lxhmx/text2sql/pkg/database"
)

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	if err := db.AutoMigrate(&model.TrainingFile{}); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("✅ Migration complete")
}
