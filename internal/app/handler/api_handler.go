package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"crm-backend/internal/app/dto"
	"crm-backend/internal/app/repository"
	"crm-backend/internal/app/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIHandler содержит обработчики для REST API
type APIHandler struct {
	Repository  *repository.Repository
	MinIOClient *storage.MinIOClient
	AuthHandler *AuthHandler
}

func NewAPIHandler(r *repository.Repository, minioClient *storage.MinIOClient, authHandler *AuthHandler) *APIHandler {
	return &APIHandler{
		Repository:  r,
		MinIOClient: minioClient,
		AuthHandler: authHandler,
	}
}

// ============ Вспомогательные функции ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.APIError{
		Success: false,
		Message: message,
	})
}

// ============ Клиенты ============

// FindClient ищет клиента по номеру телефона
// @Summary Поиск клиента по телефону
// @Description Ищет клиента по точному совпадению телефона, затем по вхождению подстроки. Используется для автозаполнения формы сделки.
// @Tags Clients
// @Produce json
// @Param phone query string true "Номер телефона"
// @Success 200 {object} dto.FindClientResponse
// @Failure 404 {object} dto.APIError
// @Router /api/find_client/ [get]
func (h *APIHandler) FindClient(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		// Пустой запрос не ходит в хранилище
		c.JSON(http.StatusOK, dto.APIError{Message: "Не указан телефон"})
		return
	}

	client, err := h.Repository.FindClientByPhone(repository.NormalizePhone(phone))
	if errors.Is(err, repository.ErrClientNotFound) {
		c.JSON(http.StatusOK, dto.APIError{Message: "Клиент не найден"})
		return
	}
	if err != nil {
		logrus.Error("find client: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка поиска клиента")
		return
	}

	email := ""
	if client.Email != nil {
		email = *client.Email
	}

	c.JSON(http.StatusOK, dto.FindClientResponse{
		Success: true,
		Client: dto.ClientInfo{
			ID:    client.ID,
			Name:  client.Name,
			Phone: client.Phone,
			Email: email,
		},
	})
}

// ============ Услуги ============

// GetServices возвращает активные услуги каталога
// @Summary Список активных услуг
// @Description Возвращает активные услуги для выпадающих списков формы сделки
// @Tags Services
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} dto.APIError
// @Router /api/services/ [get]
func (h *APIHandler) GetServices(c *gin.Context) {
	services, err := h.Repository.GetActiveServices()
	if err != nil {
		logrus.Error("get services: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения услуг")
		return
	}

	items := make([]gin.H, len(services))
	for i, s := range services {
		items[i] = gin.H{
			"id":            s.ID,
			"name":          s.Name,
			"price":         s.Price,
			"duration_days": s.DurationDays,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"services": items,
		"total":    len(items),
	})
}

// CreateService создает новую услугу каталога
// @Summary Создание услуги
// @Description Создает услугу из модального окна страницы услуг
// @Tags Services
// @Accept json
// @Produce json
// @Param request body dto.CreateServiceRequest true "Данные услуги"
// @Success 200 {object} dto.CreateServiceResponse
// @Failure 400 {object} dto.FieldErrors
// @Failure 500 {object} dto.APIError
// @Router /api/services/ [post]
func (h *APIHandler) CreateService(c *gin.Context) {
	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"general": "Неверные данные: " + err.Error()},
		})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"name": "Название услуги обязательно"},
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	service, err := h.Repository.CreateService(repository.CreateServiceInput{
		Name:         strings.TrimSpace(req.Name),
		Price:        req.Price,
		Description:  req.Description,
		DurationDays: req.DurationDays,
		IsActive:     isActive,
	})
	if err != nil {
		logrus.Error("create service: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка создания услуги")
		return
	}

	c.JSON(http.StatusOK, dto.CreateServiceResponse{
		Success:   true,
		ServiceID: service.ID,
		Message:   "Услуга успешно создана",
	})
}

// UploadServiceImage загружает изображение для услуги
// @Summary Загрузка изображения услуги
// @Description Загружает изображение услуги в MinIO и сохраняет имя объекта
// @Tags Services
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID услуги"
// @Param image formData file true "Файл изображения"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} dto.APIError
// @Failure 404 {object} dto.APIError
// @Failure 500 {object} dto.APIError
// @Router /api/services/{id}/image [post]
func (h *APIHandler) UploadServiceImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID услуги")
		return
	}

	service, err := h.Repository.GetServiceByID(uint(id))
	if errors.Is(err, repository.ErrServiceNotFound) {
		h.errorResponse(c, http.StatusNotFound, "Услуга не найдена")
		return
	}
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения услуги")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Файл не найден в запросе")
		return
	}

	openedFile, err := file.Open()
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка чтения файла")
		return
	}
	defer openedFile.Close()

	fileData, err := io.ReadAll(openedFile)
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка чтения файла")
		return
	}

	if h.MinIOClient == nil {
		h.errorResponse(c, http.StatusInternalServerError, "Хранилище изображений не настроено")
		return
	}

	// Старое изображение удаляем, чтобы не копить объекты
	if service.ImageURL != nil && *service.ImageURL != "" {
		if err := h.MinIOClient.DeleteServiceImage(*service.ImageURL); err != nil {
			logrus.Warnf("failed to delete old image %s: %v", *service.ImageURL, err)
		}
	}

	objectName, err := h.MinIOClient.UploadServiceImage(fileData, file.Filename)
	if err != nil {
		logrus.Error("upload service image: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки изображения")
		return
	}

	if err := h.Repository.SetServiceImage(uint(id), objectName); err != nil {
		logrus.Error("set service image: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка обновления изображения")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"image_url": objectName,
	})
}

// GetServiceImage возвращает временную ссылку на изображение услуги
// @Summary Ссылка на изображение услуги
// @Tags Services
// @Produce json
// @Param id path int true "ID услуги"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} dto.APIError
// @Router /api/services/{id}/image [get]
func (h *APIHandler) GetServiceImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID услуги")
		return
	}

	service, err := h.Repository.GetServiceByID(uint(id))
	if errors.Is(err, repository.ErrServiceNotFound) {
		h.errorResponse(c, http.StatusNotFound, "Услуга не найдена")
		return
	}
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения услуги")
		return
	}

	if service.ImageURL == nil || *service.ImageURL == "" || h.MinIOClient == nil {
		h.errorResponse(c, http.StatusNotFound, "Изображение отсутствует")
		return
	}

	url, err := h.MinIOClient.GetImageURL(*service.ImageURL)
	if err != nil {
		logrus.Error("presign image url: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения ссылки")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// Ping проверяет доступность сервиса
// @Summary Проверка работоспособности
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /ping [get]
func (h *APIHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
