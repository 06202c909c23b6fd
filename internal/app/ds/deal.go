package ds

import "time"

// Статусы сделки. Плоский набор меток: любой статус может смениться
// на любой другой, граф переходов не ограничен.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusReady      = "ready"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusSuccessful = "successful"
	StatusClosed     = "closed"
)

// StatusChoices — статус и его отображаемое название, в порядке жизненного цикла.
var StatusChoices = []struct {
	Value   string
	Display string
}{
	{StatusNew, "Принята"},
	{StatusInProgress, "В работе"},
	{StatusReady, "Готов к выдаче"},
	{StatusCompleted, "Выполнена"},
	{StatusCancelled, "Отменена"},
	{StatusSuccessful, "Успешная"},
	{StatusClosed, "Закрытая"},
}

// TerminalStatuses — статусы, после которых сделка не считается активной.
var TerminalStatuses = []string{StatusCompleted, StatusCancelled, StatusSuccessful, StatusClosed}

// RevenueStatuses — статусы, при которых стоимость услуг сделки
// учитывается в выручке и тратах клиента.
var RevenueStatuses = []string{StatusCompleted, StatusSuccessful}

// IsValidStatus проверяет, что статус входит в объявленный набор.
func IsValidStatus(status string) bool {
	for _, c := range StatusChoices {
		if c.Value == status {
			return true
		}
	}
	return false
}

// ValidStatuses возвращает список допустимых значений статуса.
func ValidStatuses() []string {
	statuses := make([]string, len(StatusChoices))
	for i, c := range StatusChoices {
		statuses[i] = c.Value
	}
	return statuses
}

// StatusDisplay возвращает отображаемое название статуса.
func StatusDisplay(status string) string {
	for _, c := range StatusChoices {
		if c.Value == status {
			return c.Display
		}
	}
	return status
}

// IsTerminalStatus проверяет, что статус терминальный.
func IsTerminalStatus(status string) bool {
	for _, s := range TerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Сделка с клиентом. Итоговая стоимость не хранится в строке —
// она всегда вычисляется суммой по deal_services.
type Deal struct {
	ID          uint      `gorm:"primaryKey"`
	ClientID    uint      `gorm:"not null;index"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"type:varchar(20);not null;default:'new'"`
	StartDate   time.Time `gorm:"not null"`
	EndDate     time.Time `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Client             Client              `gorm:"foreignKey:ClientID"`
	Services           []DealService       `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	Comments           []Comment           `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	AdditionalContacts []AdditionalContact `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
}

// IsExpired — сделка просрочена: срок вышел, а терминальный статус не достигнут.
func (d *Deal) IsExpired(now time.Time) bool {
	return now.After(d.EndDate) && !IsTerminalStatus(d.Status)
}
