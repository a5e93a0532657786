package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Skotchmaster/news_guard/internal/app"
	"github.com/Skotchmaster/news_guard/internal/config"
	"github.com/Skotchmaster/news_guard/internal/migrations"
	"github.com/Skotchmaster/news_guard/internal/models"
)

func main() {
	drop := flag.Bool("drop", false, "drop every table and recreate the schema (destroys all data)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := app.OpenStore(ctx, cfg, false)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer app.Close(db)

	if cfg.DBDriver == config.DriverSQLite {
		if *drop {
			if err := db.Migrator().DropTable(models.All()...); err != nil {
				log.Fatalf("drop tables: %v", err)
			}
		}
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Fatalf("automigrate: %v", err)
		}
		log.Println("sqlite schema is up to date")
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}
	if *drop {
		err = migrations.Reset(ctx, sqlDB)
	} else {
		err = migrations.Up(ctx, sqlDB)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("postgres schema is up to date")
}
