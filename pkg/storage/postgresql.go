package storage

import (
	"fmt"
	"log/slog"

	slogGorm "github.com/orandin/slog-gorm"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/proofscan/proof-manager/pkg/config"
	"github.com/proofscan/proof-manager/pkg/model"
)

func NewDatabase(logger *slog.Logger, c config.Postgresql) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable", c.Host, c.Username, c.Password, c.DatabaseName, c.Port)

	databaseConfig := gorm.Config{
		Logger:         slogGorm.New(slogGorm.WithHandler(logger.Handler())),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), &databaseConfig)
	if err != nil {
		return nil, err
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.Team{},
		&model.User{},
		&model.ApiKey{},

		&model.Zkvm{},
		&model.ZkvmVersion{},
		&model.CloudInstance{},
		&model.ProverType{},

		&model.Cluster{},
		&model.ClusterVersion{},
		&model.ClusterMachine{},

		&model.Block{},
		&model.Proof{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
