package repository

import (
	"errors"
	"strings"

	"crm-backend/internal/app/ds"

	"gorm.io/gorm"
)

// Методы для работы с клиентами

// CreateClient создает клиента явно, через форму.
func (r *Repository) CreateClient(name, phone, email, notes string) (*ds.Client, error) {
	client := ds.Client{
		Name:  name,
		Phone: phone,
		Notes: notes,
	}
	if email != "" {
		client.Email = &email
	}

	if err := r.db.Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// GetClientByID возвращает клиента по ID.
func (r *Repository) GetClientByID(clientID uint) (*ds.Client, error) {
	var client ds.Client
	err := r.db.First(&client, clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetAllClients возвращает всех клиентов по алфавиту.
func (r *Repository) GetAllClients() ([]ds.Client, error) {
	var clients []ds.Client
	err := r.db.Order("name").Find(&clients).Error
	return clients, err
}

// FindClientByPhone ищет клиента: сначала точное совпадение телефона,
// затем вхождение подстроки.
func (r *Repository) FindClientByPhone(phone string) (*ds.Client, error) {
	var client ds.Client
	err := r.db.Where("phone = ?", phone).First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.Where("phone LIKE ?", "%"+phone+"%").First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// ClientExistsByPhone проверяет точное совпадение телефона. В отличие от
// FindClientByPhone не ищет по подстроке: новый номер, содержащий чужой
// номер внутри себя, дубликатом не считается.
func (r *Repository) ClientExistsByPhone(phone string) (bool, error) {
	var count int64
	err := r.db.Model(&ds.Client{}).Where("phone = ?", phone).Count(&count).Error
	return count > 0, err
}

// getOrCreateClientByPhone ищет клиента по точному телефону и создает
// нового, если не найден. Если клиент существует, но имя в форме другое —
// имя перезаписывается (последняя запись побеждает). Вызывается внутри
// транзакции создания сделки; гонку двух запросов с одним телефоном
// закрывает уникальный индекс по phone.
func getOrCreateClientByPhone(tx *gorm.DB, phone, name string) (*ds.Client, error) {
	var client ds.Client
	err := tx.Where("phone = ?", phone).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		client = ds.Client{Name: name, Phone: phone}
		if err := tx.Create(&client).Error; err != nil {
			return nil, err
		}
		return &client, nil
	}
	if err != nil {
		return nil, err
	}

	if name != "" && client.Name != name {
		client.Name = name
		if err := tx.Model(&client).Update("name", name).Error; err != nil {
			return nil, err
		}
	}
	return &client, nil
}

// ClientTotalSpent — сумма по услугам сделок клиента, у которых статус
// входит в набор признанной выручки. Ноль, если таких сделок нет.
func (r *Repository) ClientTotalSpent(clientID uint) (float64, error) {
	var total float64
	err := r.db.Model(&ds.DealService{}).
		Joins("JOIN deals ON deals.id = deal_services.deal_id").
		Where("deals.client_id = ? AND deals.status IN ?", clientID, ds.RevenueStatuses).
		Select("COALESCE(SUM(deal_services.price), 0)").
		Scan(&total).Error
	return total, err
}

// ClientDealsCount — количество всех сделок клиента, независимо от статуса.
func (r *Repository) ClientDealsCount(clientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&ds.Deal{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

// ClientActiveDealsCount — сделки клиента вне терминальных статусов.
func (r *Repository) ClientActiveDealsCount(clientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&ds.Deal{}).
		Where("client_id = ? AND status NOT IN ?", clientID, ds.TerminalStatuses).
		Count(&count).Error
	return count, err
}

// ClientDeals возвращает сделки клиента от новых к старым.
func (r *Repository) ClientDeals(clientID uint) ([]DealListItem, error) {
	return r.scanDealItems(r.dealListQuery().
		Where("deals.client_id = ?", clientID).
		Order("deals.created_at DESC"))
}

// IN-списки статусов для подзапросов. Значения — внутренние константы,
// не пользовательский ввод.
var (
	terminalStatusesSQL = statusSetSQL(ds.TerminalStatuses)
	revenueStatusesSQL  = statusSetSQL(ds.RevenueStatuses)
)

func statusSetSQL(statuses []string) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + s + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// ClientListItem — строка справочника контактов со сводкой по сделкам.
type ClientListItem struct {
	ID          uint
	Name        string
	Phone       string
	Email       *string
	Notes       string
	DealsCount  int64
	ActiveDeals int64
	TotalSpent  float64
}

// SearchClients возвращает справочник контактов, опционально сужая его
// поиском по имени, телефону или email.
func (r *Repository) SearchClients(search string) ([]ClientListItem, error) {
	query := r.db.Model(&ds.Client{}).
		Select("clients.id, clients.name, clients.phone, clients.email, clients.notes, " +
			"(SELECT COUNT(*) FROM deals WHERE deals.client_id = clients.id) AS deals_count, " +
			"(SELECT COUNT(*) FROM deals WHERE deals.client_id = clients.id AND deals.status NOT IN " + terminalStatusesSQL + ") AS active_deals, " +
			"(SELECT COALESCE(SUM(deal_services.price), 0) FROM deal_services " +
			"JOIN deals ON deals.id = deal_services.deal_id " +
			"WHERE deals.client_id = clients.id AND deals.status IN " + revenueStatusesSQL + ") AS total_spent").
		Order("clients.name")

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("clients.name LIKE ? OR clients.phone LIKE ? OR clients.email LIKE ?",
			like, like, like)
	}

	var items []ClientListItem
	err := query.Scan(&items).Error
	return items, err
}

// NormalizePhone убирает из номера пробелы, дефисы и скобки.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
}
