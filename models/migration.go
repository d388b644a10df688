package models

import (
	"log"

	"bitbucket.org/puretradeops/logistics_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Shipment{},
		&Alert{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
