package repository

import (
	"fmt"
	"testing"
	"time"

	"crm-backend/internal/app/ds"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRepo поднимает репозиторий на in-memory sqlite.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewFromDB(db)
}

func seedService(t *testing.T, r *Repository, name string, price float64) *ds.Service {
	t.Helper()

	service, err := r.CreateService(CreateServiceInput{
		Name:     name,
		Price:    price,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to seed service %q: %v", name, err)
	}
	return service
}

func seedDeal(t *testing.T, r *Repository, phone, name, status string, selections ...ServiceSelection) uint {
	t.Helper()

	now := time.Now()
	dealID, err := r.CreateDeal(CreateDealInput{
		ClientName:  name,
		ClientPhone: phone,
		Status:      status,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, 7),
		Services:    selections,
	})
	if err != nil {
		t.Fatalf("failed to seed deal: %v", err)
	}
	return dealID
}

func seedUser(t *testing.T, r *Repository, login string) *ds.User {
	t.Helper()

	user, err := r.CreateUser(login, "hash", "Test User")
	if err != nil {
		t.Fatalf("failed to seed user %q: %v", login, err)
	}
	return user
}
