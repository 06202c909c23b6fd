package ds

import "time"

// Комментарий к сделке. Только добавление: правка и удаление
// через API не предусмотрены. Выводятся от новых к старым.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	DealID    uint   `gorm:"not null;index"`
	AuthorID  uint   `gorm:"not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time

	Author User `gorm:"foreignKey:AuthorID"`
}

// Дополнительный контакт сделки, удаляется вместе со сделкой.
type AdditionalContact struct {
	ID     uint   `gorm:"primaryKey"`
	DealID uint   `gorm:"not null;index"`
	Name   string `gorm:"type:varchar(200);not null"` // Контактное лицо
	Phone  string `gorm:"type:varchar(20);not null"`
}
