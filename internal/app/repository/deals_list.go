package repository

import (
	"time"

	"crm-backend/internal/app/ds"

	"gorm.io/gorm"
)

// Списки сделок: фильтрация, поиск, сортировка, пагинация

// DealListItem — строка списка сделок с данными клиента и вычисленной
// стоимостью (сумма по deal_services, подзапросом).
type DealListItem struct {
	ID          uint
	ClientID    uint
	ClientName  string
	ClientPhone string
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TotalPrice  float64
}

// StatusDisplay возвращает отображаемое название статуса строки.
func (d DealListItem) StatusDisplay() string {
	return ds.StatusDisplay(d.Status)
}

// IsExpired — просрочена ли сделка на текущий момент.
func (d DealListItem) IsExpired() bool {
	return time.Now().After(d.EndDate) && !ds.IsTerminalStatus(d.Status)
}

const totalPriceSubquery = "(SELECT COALESCE(SUM(deal_services.price), 0) FROM deal_services WHERE deal_services.deal_id = deals.id)"

func (r *Repository) dealListQuery() *gorm.DB {
	return r.db.Model(&ds.Deal{}).
		Joins("JOIN clients ON clients.id = deals.client_id").
		Select("deals.id, deals.client_id, clients.name AS client_name, clients.phone AS client_phone, " +
			"deals.description, deals.status, deals.start_date, deals.end_date, " +
			"deals.created_at, deals.updated_at, " + totalPriceSubquery + " AS total_price")
}

func (r *Repository) scanDealItems(query *gorm.DB) ([]DealListItem, error) {
	var items []DealListItem
	err := query.Scan(&items).Error
	return items, err
}

// DealFilter — параметры страниц списков сделок.
type DealFilter struct {
	Statuses  []string // Пусто — все статусы
	ServiceID uint     // Фильтр по услуге (страница успешных сделок)
	Search    string   // Поиск: имя/телефон/email клиента, название/описание услуги
	Date      string   // all | today | week | month | quarter | year
	// Поле отсчета для фильтра по дате: created_at для общего списка,
	// updated_at для страниц закрытых и успешных сделок.
	DateColumn string
	Sort       string // newest | oldest | price_high | price_low
	Page       int
	PageSize   int
}

// dateThreshold возвращает нижнюю границу периода относительно now.
func dateThreshold(date string, now time.Time) (time.Time, bool) {
	switch date {
	case "today":
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), true
	case "week":
		return now.AddDate(0, 0, -7), true
	case "month":
		return now.AddDate(0, 0, -30), true
	case "quarter":
		return now.AddDate(0, 0, -90), true
	case "year":
		return now.AddDate(0, 0, -365), true
	}
	return time.Time{}, false
}

// applyDealFilters накладывает условия фильтра на запрос по сделкам
// (ожидается присоединенная таблица clients).
func applyDealFilters(query *gorm.DB, filter DealFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		query = query.Where("deals.status IN ?", filter.Statuses)
	}

	if filter.ServiceID != 0 {
		query = query.Where("EXISTS (SELECT 1 FROM deal_services WHERE deal_services.deal_id = deals.id AND deal_services.service_id = ?)",
			filter.ServiceID)
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where(
			"clients.name LIKE ? OR clients.phone LIKE ? OR clients.email LIKE ? OR "+
				"EXISTS (SELECT 1 FROM deal_services "+
				"JOIN services ON services.id = deal_services.service_id "+
				"WHERE deal_services.deal_id = deals.id AND (services.name LIKE ? OR services.description LIKE ?))",
			like, like, like, like, like)
	}

	if threshold, ok := dateThreshold(filter.Date, time.Now()); ok {
		column := filter.DateColumn
		if column == "" {
			column = "deals.created_at"
		}
		query = query.Where(column+" >= ?", threshold)
	}

	return query
}

// ListDeals возвращает страницу сделок по фильтру и общее количество
// строк до пагинации.
func (r *Repository) ListDeals(filter DealFilter) ([]DealListItem, int64, error) {
	var total int64
	countQuery := applyDealFilters(
		r.db.Model(&ds.Deal{}).Joins("JOIN clients ON clients.id = deals.client_id"),
		filter)
	if err := countQuery.Distinct("deals.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := applyDealFilters(r.dealListQuery(), filter)

	switch filter.Sort {
	case "oldest":
		query = query.Order("deals.created_at")
	case "price_high":
		query = query.Order("total_price DESC")
	case "price_low":
		query = query.Order("total_price")
	default: // newest
		query = query.Order("deals.created_at DESC")
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	items, err := r.scanDealItems(query)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// DealsByStatus возвращает сделки одного статуса для досок дашборда.
func (r *Repository) DealsByStatus(status string) ([]DealListItem, error) {
	return r.scanDealItems(r.dealListQuery().
		Where("deals.status = ?", status).
		Order("deals.created_at DESC"))
}

// ExpiredDeals — активные сделки с прошедшей датой окончания.
func (r *Repository) ExpiredDeals() ([]DealListItem, error) {
	return r.scanDealItems(r.dealListQuery().
		Where("deals.status NOT IN ? AND deals.end_date < ?", ds.TerminalStatuses, time.Now()).
		Order("deals.end_date"))
}
