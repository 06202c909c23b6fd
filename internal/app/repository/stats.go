package repository

import (
	"time"

	"crm-backend/internal/app/ds"
)

// Сводная статистика для дашборда и страницы отчётов

// StatusCounts возвращает количество сделок по каждому статусу.
func (r *Repository) StatusCounts() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&ds.Deal{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// TotalDeals — общее количество сделок.
func (r *Repository) TotalDeals() (int64, error) {
	var count int64
	err := r.db.Model(&ds.Deal{}).Count(&count).Error
	return count, err
}

// TotalRevenue — сумма по услугам сделок в статусах признанной выручки.
func (r *Repository) TotalRevenue() (float64, error) {
	var total float64
	err := r.db.Model(&ds.DealService{}).
		Joins("JOIN deals ON deals.id = deal_services.deal_id").
		Where("deals.status IN ?", ds.RevenueStatuses).
		Select("COALESCE(SUM(deal_services.price), 0)").
		Scan(&total).Error
	return total, err
}

// ServiceStat — статистика использования услуги в сделках.
type ServiceStat struct {
	ServiceID    uint
	Name         string
	Count        int64
	TotalRevenue float64
	AvgPrice     float64
}

// ServiceStats возвращает статистику по услугам, встречающимся в сделках.
func (r *Repository) ServiceStats() ([]ServiceStat, error) {
	var stats []ServiceStat
	err := r.db.Model(&ds.Service{}).
		Joins("JOIN deal_services ON deal_services.service_id = services.id").
		Select("services.id AS service_id, services.name, COUNT(deal_services.id) AS count, " +
			"COALESCE(SUM(deal_services.price), 0) AS total_revenue, " +
			"COALESCE(AVG(deal_services.price), 0) AS avg_price").
		Group("services.id, services.name").
		Order("total_revenue DESC").
		Scan(&stats).Error
	return stats, err
}

// NewClientsCount — количество клиентов, созданных за последние days дней.
func (r *Repository) NewClientsCount(days int) (int64, error) {
	var count int64
	err := r.db.Model(&ds.Client{}).
		Where("created_at >= ?", time.Now().AddDate(0, 0, -days)).
		Count(&count).Error
	return count, err
}

// Statistics — сводка для страницы статистики.
type Statistics struct {
	TotalRevenue    float64
	TotalDeals      int64
	CompletedDeals  int64
	SuccessfulDeals int64
	TotalCompleted  int64
	NewClients      int64
	ConversionRate  float64 // Доля завершенных и успешных сделок, %
	ServiceStats    []ServiceStat
}

// GetStatistics собирает данные страницы статистики.
func (r *Repository) GetStatistics() (*Statistics, error) {
	stats := &Statistics{}

	var err error
	if stats.TotalRevenue, err = r.TotalRevenue(); err != nil {
		return nil, err
	}
	if stats.TotalDeals, err = r.TotalDeals(); err != nil {
		return nil, err
	}

	counts, err := r.StatusCounts()
	if err != nil {
		return nil, err
	}
	stats.CompletedDeals = counts[ds.StatusCompleted]
	stats.SuccessfulDeals = counts[ds.StatusSuccessful]
	stats.TotalCompleted = stats.CompletedDeals + stats.SuccessfulDeals

	if stats.NewClients, err = r.NewClientsCount(30); err != nil {
		return nil, err
	}

	if stats.TotalDeals > 0 {
		rate := float64(stats.TotalCompleted) / float64(stats.TotalDeals) * 100
		stats.ConversionRate = float64(int(rate*10+0.5)) / 10 // Округление до 0.1
	}

	if stats.ServiceStats, err = r.ServiceStats(); err != nil {
		return nil, err
	}

	return stats, nil
}
