package repository

import (
	"errors"
	"fmt"
	"strings"

	"crm-backend/internal/app/ds"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Типизированные ошибки предметной области. Обработчики сопоставляют их
// с HTTP статусами вместо перехвата всего подряд.
var (
	ErrClientNotFound  = errors.New("клиент не найден")
	ErrServiceNotFound = errors.New("услуга не найдена")
	ErrDealNotFound    = errors.New("сделка не найдена")
	ErrUserNotFound    = errors.New("пользователь не найден")
	ErrServiceInUse    = errors.New("услуга используется в сделках и не может быть удалена")
)

// InvalidStatusError — статус вне объявленного набора.
type InvalidStatusError struct {
	Status        string
	ValidStatuses []string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("неверный статус %q, допустимые: %s", e.Status, strings.Join(e.ValidStatuses, ", "))
}

type Repository struct {
	db *gorm.DB
}

func New(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewFromDB оборачивает готовое подключение (используется в тестах с sqlite).
func NewFromDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate выполняет автоматическую миграцию всех таблиц.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ds.User{},
		&ds.Client{},
		&ds.ServiceCategory{},
		&ds.Service{},
		&ds.Deal{},
		&ds.DealService{},
		&ds.Comment{},
		&ds.AdditionalContact{},
	)
}
