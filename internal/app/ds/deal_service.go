package ds

import "time"

// Связь многие-ко-многим (сделки-услуги) с индивидуальной ценой.
// Цена фиксируется в момент добавления и не зависит от последующих
// изменений каталога. Пара (сделка, услуга) уникальна.
type DealService struct {
	ID        uint    `gorm:"primaryKey"`
	DealID    uint    `gorm:"not null;index;uniqueIndex:idx_deal_service"`
	ServiceID uint    `gorm:"not null;index;uniqueIndex:idx_deal_service"`
	Price     float64 `gorm:"type:decimal(10,2);not null"` // Стоимость в сделке
	CreatedAt time.Time

	Deal    Deal    `gorm:"foreignKey:DealID"`
	Service Service `gorm:"foreignKey:ServiceID;constraint:OnDelete:RESTRICT"`
}
