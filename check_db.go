package main

import (
	"fmt"
	"log"

	"crm-backend/internal/app/ds"
	"crm-backend/internal/app/dsn"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	db, err := gorm.Open(postgres.Open(dsn.FromEnv()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	var services []ds.Service
	if err := db.Find(&services).Error; err != nil {
		log.Fatal("Failed to get services:", err)
	}

	fmt.Println("Services in database:")
	for _, service := range services {
		imageURL := "NULL"
		if service.ImageURL != nil {
			imageURL = *service.ImageURL
		}
		fmt.Printf("ID: %d, Name: %s, Price: %.2f, Active: %t, ImageURL: %s\n",
			service.ID, service.Name, service.Price, service.IsActive, imageURL)
	}
}
