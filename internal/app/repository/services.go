package repository

import (
	"errors"

	"crm-backend/internal/app/ds"

	"gorm.io/gorm"
)

// Методы для работы с каталогом услуг

// CreateServiceInput — данные для создания услуги.
type CreateServiceInput struct {
	Name         string
	Price        float64
	Description  string
	DurationDays int
	IsActive     bool
	CategoryID   *uint
}

// CreateService добавляет услугу в каталог.
func (r *Repository) CreateService(input CreateServiceInput) (*ds.Service, error) {
	durationDays := input.DurationDays
	if durationDays <= 0 {
		durationDays = 7
	}

	service := ds.Service{
		Name:         input.Name,
		Price:        input.Price,
		Description:  input.Description,
		DurationDays: durationDays,
		IsActive:     input.IsActive,
		CategoryID:   input.CategoryID,
	}
	if err := r.db.Create(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// GetServiceByID возвращает услугу по ID.
func (r *Repository) GetServiceByID(serviceID uint) (*ds.Service, error) {
	var service ds.Service
	err := r.db.First(&service, serviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// GetActiveServices возвращает активные услуги каталога.
func (r *Repository) GetActiveServices() ([]ds.Service, error) {
	var services []ds.Service
	err := r.db.Where("is_active = ?", true).Order("name").Find(&services).Error
	return services, err
}

// ServiceWithUsage — услуга с количеством сделок, в которых она участвует.
type ServiceWithUsage struct {
	ds.Service
	UsageCount int64
}

// GetServicesWithUsage возвращает услуги с количеством использований,
// с необязательным поиском по названию, описанию и категории.
func (r *Repository) GetServicesWithUsage(search string) ([]ServiceWithUsage, error) {
	query := r.db.Model(&ds.Service{}).
		Joins("LEFT JOIN service_categories ON service_categories.id = services.category_id").
		Select("services.*, (SELECT COUNT(*) FROM deal_services WHERE deal_services.service_id = services.id) AS usage_count").
		Order("service_categories.name, services.name")

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("services.name LIKE ? OR services.description LIKE ? OR service_categories.name LIKE ?",
			like, like, like)
	}

	var items []ServiceWithUsage
	err := query.Scan(&items).Error
	return items, err
}

// PopularServices возвращает услуги, чаще всего встречающиеся в сделках.
func (r *Repository) PopularServices(limit int) ([]ServiceWithUsage, error) {
	var items []ServiceWithUsage
	err := r.db.Model(&ds.Service{}).
		Select("services.*, (SELECT COUNT(*) FROM deal_services WHERE deal_services.service_id = services.id) AS usage_count").
		Order("usage_count DESC").
		Limit(limit).
		Scan(&items).Error
	return items, err
}

// UpdateServiceInput — данные для изменения услуги.
type UpdateServiceInput struct {
	Name         string
	Price        float64
	Description  string
	DurationDays int
	IsActive     bool
	CategoryID   *uint
}

// UpdateService изменяет услугу каталога. Цены уже созданных deal_services
// не пересчитываются — они зафиксированы в момент добавления в сделку.
func (r *Repository) UpdateService(serviceID uint, input UpdateServiceInput) error {
	result := r.db.Model(&ds.Service{}).Where("id = ?", serviceID).Updates(map[string]interface{}{
		"name":          input.Name,
		"price":         input.Price,
		"description":   input.Description,
		"duration_days": input.DurationDays,
		"is_active":     input.IsActive,
		"category_id":   input.CategoryID,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// SetServiceActive включает или выключает услугу. Используется вместо
// удаления для услуг, на которые ссылаются сделки.
func (r *Repository) SetServiceActive(serviceID uint, active bool) error {
	result := r.db.Model(&ds.Service{}).Where("id = ?", serviceID).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// SetServiceImage сохраняет имя объекта изображения услуги.
func (r *Repository) SetServiceImage(serviceID uint, imageURL string) error {
	result := r.db.Model(&ds.Service{}).Where("id = ?", serviceID).Update("image_url", imageURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// DeleteService удаляет услугу из каталога. Услуга, на которую ссылаются
// сделки, не удаляется — исторические записи deal_services сохраняются,
// вместо удаления её следует деактивировать.
func (r *Repository) DeleteService(serviceID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&ds.DealService{}).Where("service_id = ?", serviceID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrServiceInUse
		}

		result := tx.Delete(&ds.Service{}, serviceID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrServiceNotFound
		}
		return nil
	})
}

// ============ Категории услуг ============

// CreateCategory добавляет категорию.
func (r *Repository) CreateCategory(name, description string, sortOrder int) (*ds.ServiceCategory, error) {
	category := ds.ServiceCategory{Name: name, Description: description, SortOrder: sortOrder}
	if err := r.db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategories возвращает категории в порядке сортировки.
func (r *Repository) GetCategories() ([]ds.ServiceCategory, error) {
	var categories []ds.ServiceCategory
	err := r.db.Order("sort_order, name").Find(&categories).Error
	return categories, err
}

// DeleteCategory удаляет категорию, отвязывая её услуги (category_id -> NULL),
// сами услуги не удаляются.
func (r *Repository) DeleteCategory(categoryID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ds.Service{}).
			Where("category_id = ?", categoryID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&ds.ServiceCategory{}, categoryID).Error
	})
}

// ServicesPageStats — сводка для страницы каталога.
type ServicesPageStats struct {
	TotalServices  int64
	ActiveServices int64
	AvgPrice       float64
	PopularCount   int64 // Услуги более чем с 5 использованиями
}

// GetServicesPageStats считает сводку каталога.
func (r *Repository) GetServicesPageStats() (*ServicesPageStats, error) {
	var stats ServicesPageStats

	if err := r.db.Model(&ds.Service{}).Count(&stats.TotalServices).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&ds.Service{}).Where("is_active = ?", true).Count(&stats.ActiveServices).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&ds.Service{}).Select("COALESCE(AVG(price), 0)").Scan(&stats.AvgPrice).Error; err != nil {
		return nil, err
	}
	err := r.db.Model(&ds.Service{}).
		Where("(SELECT COUNT(*) FROM deal_services WHERE deal_services.service_id = services.id) > ?", 5).
		Count(&stats.PopularCount).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
