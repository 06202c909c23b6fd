package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crm-backend/internal/app/ds"
	"crm-backend/internal/app/dto"
	"crm-backend/internal/app/middleware"
	"crm-backend/internal/app/repository"
	"crm-backend/internal/app/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Страницы и операции сделок

// parseFormDate разбирает дату из datetime-local или ISO формата.
func parseFormDate(value string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04",
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
	}
	value = strings.Replace(value, "Z", "+00:00", 1)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("неверный формат даты")
}

// parseServiceSelections собирает пары услуга-цена из массивов формы.
// Пустая или нулевая цена означает подстановку цены каталога.
func parseServiceSelections(serviceIDs, prices []string) ([]repository.ServiceSelection, map[string]string) {
	selections := make([]repository.ServiceSelection, 0, len(serviceIDs))
	for i, idStr := range serviceIDs {
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, map[string]string{"services": "Неверные данные об услугах"}
		}

		var price float64
		if i < len(prices) && prices[i] != "" {
			price, err = strconv.ParseFloat(prices[i], 64)
			if err != nil || price < 0 {
				return nil, map[string]string{"prices": "Неверная цена услуги"}
			}
		}

		selections = append(selections, repository.ServiceSelection{
			ServiceID: uint(id),
			Price:     price,
		})
	}

	if len(selections) == 0 {
		return nil, map[string]string{"services": "Выберите хотя бы одну услугу"}
	}
	return selections, nil
}

// validateDealDates проверяет даты сделки: окончание строго позже начала,
// начало не в прошлом. Проверка уровня формы, не хранилища.
func validateDealDates(start, end time.Time, now time.Time) map[string]string {
	errs := make(map[string]string)
	if !end.After(start) {
		errs["end_date"] = "Дата окончания должна быть позже даты начала"
	}
	if start.Before(now) {
		errs["start_date"] = "Дата начала не может быть в прошлом"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CreateDeal — центральный сценарий записи: клиент по телефону
// (поиск или создание), сделка, услуги с фиксацией цен — одной транзакцией.
func (h *Handler) CreateDeal(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		ctx.JSON(http.StatusMethodNotAllowed, dto.FieldErrors{
			Errors: map[string]string{"general": "Неверный метод запроса"},
		})
		return
	}

	clientName := strings.TrimSpace(ctx.PostForm("client_name"))
	clientPhone := repository.NormalizePhone(ctx.PostForm("client_phone"))
	startDateStr := ctx.PostForm("start_date")
	endDateStr := ctx.PostForm("end_date")
	status := ctx.PostForm("status")
	description := ctx.PostForm("description")

	if clientName == "" || clientPhone == "" || startDateStr == "" || endDateStr == "" || status == "" {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"general": "Все обязательные поля должны быть заполнены"},
		})
		return
	}

	if !utils.ValidatePhone(clientPhone) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"client_phone": "Введите корректный номер телефона в международном формате"},
		})
		return
	}

	if !ds.IsValidStatus(status) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"status": "Неверный статус"},
		})
		return
	}

	startDate, err := parseFormDate(startDateStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"start_date": "Неверный формат даты начала"},
		})
		return
	}
	endDate, err := parseFormDate(endDateStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"end_date": "Неверный формат даты окончания"},
		})
		return
	}

	if errs := validateDealDates(startDate, endDate, time.Now()); errs != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{Errors: errs})
		return
	}

	selections, errs := parseServiceSelections(
		ctx.PostFormArray("services[]"), ctx.PostFormArray("prices[]"))
	if errs != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{Errors: errs})
		return
	}

	dealID, err := h.Repository.CreateDeal(repository.CreateDealInput{
		ClientName:  clientName,
		ClientPhone: clientPhone,
		Description: description,
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		Services:    selections,
	})
	if errors.Is(err, repository.ErrServiceNotFound) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"service": "Услуга не найдена"},
		})
		return
	}
	if err != nil {
		logrus.Error("create deal: ", err)
		ctx.JSON(http.StatusInternalServerError, dto.FieldErrors{
			Errors: map[string]string{"general": "Ошибка при создании сделки"},
		})
		return
	}

	logrus.Infof("deal %d created", dealID)
	ctx.Redirect(http.StatusFound, "/")
}

// EditDeal обновляет поля сделки и целиком заменяет набор её услуг.
func (h *Handler) EditDeal(ctx *gin.Context) {
	dealID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, errors.New("неверный ID сделки"))
		return
	}

	status := ctx.PostForm("status")
	if !ds.IsValidStatus(status) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"status": "Неверный статус"},
		})
		return
	}

	startDate, err := parseFormDate(ctx.PostForm("start_date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"start_date": "Неверный формат даты начала"},
		})
		return
	}
	endDate, err := parseFormDate(ctx.PostForm("end_date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"end_date": "Неверный формат даты окончания"},
		})
		return
	}
	if !endDate.After(startDate) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"end_date": "Дата окончания должна быть позже даты начала"},
		})
		return
	}

	selections, errs := parseServiceSelections(
		ctx.PostFormArray("services[]"), ctx.PostFormArray("prices[]"))
	if errs != nil {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{Errors: errs})
		return
	}

	err = h.Repository.UpdateDeal(uint(dealID), repository.UpdateDealInput{
		Description: ctx.PostForm("description"),
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		Services:    selections,
	})
	if errors.Is(err, repository.ErrDealNotFound) {
		h.errorHandler(ctx, http.StatusNotFound, err)
		return
	}
	if errors.Is(err, repository.ErrServiceNotFound) {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"service": "Услуга не найдена"},
		})
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.Redirect(http.StatusFound, "/deal/"+strconv.FormatUint(dealID, 10)+"/")
}

// DealDetail — карточка сделки; POST добавляет комментарий от имени
// авторизованного пользователя.
func (h *Handler) DealDetail(ctx *gin.Context) {
	dealID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, errors.New("неверный ID сделки"))
		return
	}

	deal, err := h.Repository.GetDealByID(uint(dealID))
	if errors.Is(err, repository.ErrDealNotFound) {
		h.errorHandler(ctx, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if ctx.Request.Method == http.MethodPost {
		text := strings.TrimSpace(ctx.PostForm("text"))
		if text == "" {
			h.errorHandler(ctx, http.StatusBadRequest, errors.New("текст комментария обязателен"))
			return
		}
		authorID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			h.errorHandler(ctx, http.StatusUnauthorized, errors.New("пользователь не авторизован"))
			return
		}
		if _, err := h.Repository.AddComment(deal.ID, authorID, text); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
		ctx.Redirect(http.StatusFound, "/deal/"+strconv.FormatUint(dealID, 10)+"/")
		return
	}

	servicesWithPrices, _ := h.Repository.DealServicesWithPrices(deal.ID)
	comments, _ := h.Repository.DealComments(deal.ID)
	contacts, _ := h.Repository.DealAdditionalContacts(deal.ID)
	totalPrice, _ := h.Repository.DealTotalPrice(deal.ID)

	ctx.HTML(http.StatusOK, "deal_detail.html", gin.H{
		"deal":               deal,
		"servicesWithPrices": servicesWithPrices,
		"comments":           comments,
		"contacts":           contacts,
		"totalPrice":         totalPrice,
		"statusDisplay":      ds.StatusDisplay(deal.Status),
		"statusChoices":      ds.StatusChoices,
		"isExpired":          deal.IsExpired(time.Now()),
	})
}

// UpdateDealStatus меняет статус сделки. Принимает JSON или форму.
func (h *Handler) UpdateDealStatus(ctx *gin.Context) {
	dealID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIError{Message: "Неверный ID сделки"})
		return
	}

	var newStatus string
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var request dto.UpdateStatusRequest
		if err := ctx.ShouldBindJSON(&request); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.APIError{Message: "Неверный формат JSON"})
			return
		}
		newStatus = request.Status
	} else {
		newStatus = ctx.PostForm("status")
	}

	err = h.Repository.UpdateDealStatus(uint(dealID), newStatus)

	var invalidStatus *repository.InvalidStatusError
	switch {
	case errors.As(err, &invalidStatus):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":        false,
			"message":        "Неверный статус",
			"valid_statuses": invalidStatus.ValidStatuses,
		})
	case errors.Is(err, repository.ErrDealNotFound):
		ctx.JSON(http.StatusNotFound, dto.APIError{Message: "Сделка не найдена"})
	case err != nil:
		logrus.Error("update deal status: ", err)
		ctx.JSON(http.StatusInternalServerError, dto.APIError{Message: "Ошибка сервера"})
	default:
		ctx.JSON(http.StatusOK, dto.UpdateStatusResponse{
			Success:       true,
			Message:       "Статус успешно обновлен",
			NewStatus:     newStatus,
			StatusDisplay: ds.StatusDisplay(newStatus),
			DealID:        uint(dealID),
		})
	}
}

// RestoreDeal возвращает выполненную или отмененную сделку в работу.
func (h *Handler) RestoreDeal(ctx *gin.Context) {
	dealID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIError{Message: "Неверный ID сделки"})
		return
	}

	err = h.Repository.RestoreDeal(uint(dealID))
	if errors.Is(err, repository.ErrDealNotFound) {
		ctx.JSON(http.StatusNotFound, dto.APIError{Message: "Сделка не найдена"})
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteDeal удаляет сделку со всеми связанными записями.
// DELETE возвращает JSON, POST перенаправляет на список закрытых сделок.
func (h *Handler) DeleteDeal(ctx *gin.Context) {
	dealID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIError{Message: "Неверный ID сделки"})
		return
	}

	err = h.Repository.DeleteDeal(uint(dealID))
	if errors.Is(err, repository.ErrDealNotFound) {
		if ctx.Request.Method == http.MethodDelete {
			ctx.JSON(http.StatusNotFound, dto.APIError{Message: "Сделка не найдена"})
		} else {
			ctx.Redirect(http.StatusFound, "/closed/")
		}
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if ctx.Request.Method == http.MethodDelete {
		ctx.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	ctx.Redirect(http.StatusFound, "/closed/")
}

// ClosedDeals — список всех сделок с фильтрами, поиском и пагинацией.
func (h *Handler) ClosedDeals(ctx *gin.Context) {
	statusFilter := ctx.DefaultQuery("status", "all")
	dateFilter := ctx.DefaultQuery("date", "all")
	sortBy := ctx.DefaultQuery("sort", "newest")
	searchQuery := ctx.Query("search")
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))

	filter := repository.DealFilter{
		Search:     searchQuery,
		Date:       dateFilter,
		DateColumn: "deals.updated_at",
		Sort:       sortBy,
		Page:       page,
		PageSize:   25,
	}
	if statusFilter != "all" {
		filter.Statuses = []string{statusFilter}
	}

	deals, total, err := h.Repository.ListDeals(filter)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.HTML(http.StatusOK, "closed.html", gin.H{
		"deals":         deals,
		"total":         total,
		"page":          page,
		"totalPages":    (total + 24) / 25,
		"statusFilter":  statusFilter,
		"dateFilter":    dateFilter,
		"sortBy":        sortBy,
		"searchQuery":   searchQuery,
		"statusChoices": ds.StatusChoices,
	})
}

// successfulDealRow — строка отчёта по успешным сделкам с производными
// полями представления: оценка прибыли (60% выручки) и рабочие дни.
type successfulDealRow struct {
	repository.DealListItem
	Profit      float64
	WorkingDays int
}

// SuccessfulDeals — отчёт по успешным сделкам.
func (h *Handler) SuccessfulDeals(ctx *gin.Context) {
	dateFilter := ctx.DefaultQuery("date", "all")
	sortBy := ctx.DefaultQuery("sort", "newest")
	searchQuery := ctx.Query("search")
	serviceID, _ := strconv.ParseUint(ctx.DefaultQuery("service", "0"), 10, 32)
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))

	deals, total, err := h.Repository.ListDeals(repository.DealFilter{
		Statuses:   []string{ds.StatusSuccessful},
		ServiceID:  uint(serviceID),
		Search:     searchQuery,
		Date:       dateFilter,
		DateColumn: "deals.updated_at",
		Sort:       sortBy,
		Page:       page,
		PageSize:   20,
	})
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	rows := make([]successfulDealRow, len(deals))
	for i, deal := range deals {
		rows[i] = successfulDealRow{
			DealListItem: deal,
			Profit:       deal.TotalPrice * 0.6,
			WorkingDays:  utils.WorkingDaysBetween(deal.StartDate, deal.EndDate),
		}
	}

	services, _ := h.Repository.GetActiveServices()

	ctx.HTML(http.StatusOK, "successful.html", gin.H{
		"deals":       rows,
		"total":       total,
		"page":        page,
		"totalPages":  (total + 19) / 20,
		"dateFilter":  dateFilter,
		"sortBy":      sortBy,
		"searchQuery": searchQuery,
		"serviceID":   serviceID,
		"services":    services,
	})
}
