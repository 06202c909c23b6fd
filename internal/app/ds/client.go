package ds

import "time"

// Клиент. Телефон — фактический ключ идентификации: при создании сделки
// клиент ищется/создаётся именно по телефону, поэтому он уникален на уровне схемы.
type Client struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Phone     string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	Email     *string   `gorm:"type:varchar(100)"` // Nullable
	Notes     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`

	Deals []Deal `gorm:"foreignKey:ClientID"`
}
