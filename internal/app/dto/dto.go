package dto

// ============ Общие структуры ============

// APIError — единый формат ошибок API: {"success": false, "message": "..."}.
type APIError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FieldErrors — ошибки валидации формы по полям:
// {"success": false, "errors": {"field": "message"}}.
type FieldErrors struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors"`
}

// ============ Клиенты ============

type ClientInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type FindClientResponse struct {
	Success bool       `json:"success"`
	Client  ClientInfo `json:"client"`
}

// ============ Услуги ============

type CreateServiceRequest struct {
	Name         string  `json:"name" binding:"required"`
	Price        float64 `json:"price" binding:"gte=0"` // Ноль — бесплатная услуга
	Description  string  `json:"description"`
	DurationDays int     `json:"duration_days"`
	IsActive     *bool   `json:"is_active"`
}

type CreateServiceResponse struct {
	Success   bool   `json:"success"`
	ServiceID uint   `json:"service_id"`
	Message   string `json:"message"`
}

// ============ Сделки ============

type UpdateStatusRequest struct {
	Status string `json:"status" form:"status"`
}

type UpdateStatusResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewStatus     string `json:"new_status"`
	StatusDisplay string `json:"status_display"`
	DealID        uint   `json:"deal_id"`
}

// ============ Аутентификация ============

type RegisterRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}
