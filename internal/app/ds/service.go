package ds

import "time"

// Категория услуг. При удалении категории услуги не удаляются,
// а отвязываются (category_id -> NULL).
type ServiceCategory struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
	SortOrder   int    `gorm:"type:int;default:0"`

	Services []Service `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}

// Услуга из каталога — справочная информация с текущей ценой.
// Услуги, на которые ссылаются сделки, деактивируются, а не удаляются.
type Service struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string  `gorm:"type:varchar(200);not null"`
	Price        float64 `gorm:"type:decimal(10,2);not null"` // Текущая цена по каталогу
	Description  string  `gorm:"type:text"`
	DurationDays int     `gorm:"type:int;default:7"` // Срок выполнения в днях
	IsActive     bool    `gorm:"type:boolean;default:true;not null"`
	ImageURL     *string `gorm:"type:varchar(255)"` // Nullable, объект в MinIO
	CategoryID   *uint   `gorm:"index;default:null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Category *ServiceCategory `gorm:"foreignKey:CategoryID"`
}
