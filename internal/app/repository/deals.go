package repository

import (
	"errors"
	"time"

	"crm-backend/internal/app/ds"

	"gorm.io/gorm"
)

// Методы жизненного цикла сделки

// ServiceSelection — услуга, выбранная в форме сделки. Нулевая цена
// означает "подставить текущую цену каталога".
type ServiceSelection struct {
	ServiceID uint
	Price     float64
}

// CreateDealInput — данные формы создания сделки.
type CreateDealInput struct {
	ClientName  string
	ClientPhone string
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	Services    []ServiceSelection
}

// CreateDeal выполняет весь сценарий создания сделки одной транзакцией:
// поиск/создание клиента по телефону, создание сделки и привязка услуг
// с фиксацией цен. Неизвестная услуга откатывает всю операцию.
func (r *Repository) CreateDeal(input CreateDealInput) (uint, error) {
	var dealID uint

	err := r.db.Transaction(func(tx *gorm.DB) error {
		client, err := getOrCreateClientByPhone(tx, input.ClientPhone, input.ClientName)
		if err != nil {
			return err
		}

		deal := ds.Deal{
			ClientID:    client.ID,
			Description: input.Description,
			Status:      input.Status,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
		}
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}

		if err := createDealServices(tx, deal.ID, input.Services); err != nil {
			return err
		}

		dealID = deal.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return dealID, nil
}

// createDealServices создает строки deal_services. Если цена не указана,
// в строку копируется текущая цена услуги из каталога — разовый снимок,
// дальнейшие изменения каталога на него не влияют.
func createDealServices(tx *gorm.DB, dealID uint, selections []ServiceSelection) error {
	for _, sel := range selections {
		var service ds.Service
		err := tx.First(&service, sel.ServiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		if err != nil {
			return err
		}

		price := sel.Price
		if price == 0 {
			price = service.Price
		}

		row := ds.DealService{
			DealID:    dealID,
			ServiceID: service.ID,
			Price:     price,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateDealInput — данные формы редактирования сделки.
type UpdateDealInput struct {
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	Services    []ServiceSelection
}

// UpdateDeal обновляет поля сделки и целиком заменяет её набор услуг:
// старые строки deal_services удаляются и создаются заново. История
// индивидуальных цен убранных услуг при этом теряется.
func (r *Repository) UpdateDeal(dealID uint, input UpdateDealInput) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var deal ds.Deal
		err := tx.First(&deal, dealID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDealNotFound
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"description": input.Description,
			"status":      input.Status,
			"start_date":  input.StartDate,
			"end_date":    input.EndDate,
		}
		if err := tx.Model(&deal).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("deal_id = ?", dealID).Delete(&ds.DealService{}).Error; err != nil {
			return err
		}
		return createDealServices(tx, dealID, input.Services)
	})
}

// GetDealByID возвращает сделку с клиентом.
func (r *Repository) GetDealByID(dealID uint) (*ds.Deal, error) {
	var deal ds.Deal
	err := r.db.Preload("Client").First(&deal, dealID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// UpdateDealStatus меняет статус сделки. Значение вне объявленного набора
// отклоняется, сделка остается без изменений. Переходы между любыми
// статусами разрешены.
func (r *Repository) UpdateDealStatus(dealID uint, newStatus string) error {
	if !ds.IsValidStatus(newStatus) {
		return &InvalidStatusError{Status: newStatus, ValidStatuses: ds.ValidStatuses()}
	}

	result := r.db.Model(&ds.Deal{}).Where("id = ?", dealID).Update("status", newStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDealNotFound
	}
	return nil
}

// RestoreDeal возвращает выполненную или отмененную сделку в работу.
func (r *Repository) RestoreDeal(dealID uint) error {
	result := r.db.Model(&ds.Deal{}).
		Where("id = ? AND status IN ?", dealID, []string{ds.StatusCompleted, ds.StatusCancelled}).
		Update("status", ds.StatusNew)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDealNotFound
	}
	return nil
}

// DeleteDeal удаляет сделку вместе с её услугами, комментариями и
// дополнительными контактами. Клиент не затрагивается.
func (r *Repository) DeleteDeal(dealID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var deal ds.Deal
		err := tx.First(&deal, dealID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDealNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("deal_id = ?", dealID).Delete(&ds.DealService{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deal_id = ?", dealID).Delete(&ds.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deal_id = ?", dealID).Delete(&ds.AdditionalContact{}).Error; err != nil {
			return err
		}
		return tx.Delete(&deal).Error
	})
}

// DealTotalPrice — сумма цен услуг сделки. Ноль для сделки без услуг.
// Значение нигде не хранится и всегда пересчитывается по deal_services.
func (r *Repository) DealTotalPrice(dealID uint) (float64, error) {
	var total float64
	err := r.db.Model(&ds.DealService{}).
		Where("deal_id = ?", dealID).
		Select("COALESCE(SUM(price), 0)").
		Scan(&total).Error
	return total, err
}

// ServiceWithPrice — услуга сделки с зафиксированной ценой.
type ServiceWithPrice struct {
	ServiceID    uint
	Name         string
	Price        float64 // Цена в сделке
	CatalogPrice float64 // Текущая цена каталога (для сравнения в карточке)
}

// DealServicesWithPrices возвращает услуги сделки с ценами.
func (r *Repository) DealServicesWithPrices(dealID uint) ([]ServiceWithPrice, error) {
	var items []ServiceWithPrice
	err := r.db.Model(&ds.DealService{}).
		Joins("JOIN services ON services.id = deal_services.service_id").
		Where("deal_services.deal_id = ?", dealID).
		Select("deal_services.service_id, services.name, deal_services.price, services.price AS catalog_price").
		Scan(&items).Error
	return items, err
}

// DealAdditionalContacts возвращает дополнительные контакты сделки.
func (r *Repository) DealAdditionalContacts(dealID uint) ([]ds.AdditionalContact, error) {
	var contacts []ds.AdditionalContact
	err := r.db.Where("deal_id = ?", dealID).Find(&contacts).Error
	return contacts, err
}

// AddAdditionalContact добавляет контакт к сделке.
func (r *Repository) AddAdditionalContact(dealID uint, name, phone string) error {
	contact := ds.AdditionalContact{DealID: dealID, Name: name, Phone: phone}
	return r.db.Create(&contact).Error
}
