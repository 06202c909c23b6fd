package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"crm-backend/internal/app/dto"
	"crm-backend/internal/app/repository"
	"crm-backend/internal/app/utils"

	"github.com/gin-gonic/gin"
)

// Страницы клиентов и справочник контактов

// Contacts — справочник контактов с поиском по имени, телефону и email.
func (h *Handler) Contacts(ctx *gin.Context) {
	searchQuery := ctx.Query("search")

	clients, err := h.Repository.SearchClients(searchQuery)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.HTML(http.StatusOK, "contacts.html", gin.H{
		"clients":     clients,
		"searchQuery": searchQuery,
	})
}

// ClientDetail — карточка клиента: сделки, потраченная сумма, счётчики.
func (h *Handler) ClientDetail(ctx *gin.Context) {
	clientID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, errors.New("неверный ID клиента"))
		return
	}

	client, err := h.Repository.GetClientByID(uint(clientID))
	if errors.Is(err, repository.ErrClientNotFound) {
		h.errorHandler(ctx, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	totalSpent, _ := h.Repository.ClientTotalSpent(client.ID)
	dealsCount, _ := h.Repository.ClientDealsCount(client.ID)
	activeDeals, _ := h.Repository.ClientActiveDealsCount(client.ID)
	deals, _ := h.Repository.ClientDeals(client.ID)

	ctx.HTML(http.StatusOK, "client_detail.html", gin.H{
		"client":      client,
		"totalSpent":  totalSpent,
		"dealsCount":  dealsCount,
		"activeDeals": activeDeals,
		"deals":       deals,
	})
}

// ClientDeals — все сделки одного клиента.
func (h *Handler) ClientDeals(ctx *gin.Context) {
	clientID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, errors.New("неверный ID клиента"))
		return
	}

	client, err := h.Repository.GetClientByID(uint(clientID))
	if errors.Is(err, repository.ErrClientNotFound) {
		h.errorHandler(ctx, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	deals, err := h.Repository.ClientDeals(client.ID)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.HTML(http.StatusOK, "client_deals.html", gin.H{
		"client": client,
		"deals":  deals,
	})
}

// CreateClient — форма ручного создания клиента. GET отдает форму,
// POST валидирует и сохраняет.
func (h *Handler) CreateClient(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		ctx.HTML(http.StatusOK, "client_create.html", gin.H{})
		return
	}
	if ctx.Request.Method != http.MethodPost {
		ctx.JSON(http.StatusMethodNotAllowed, dto.FieldErrors{
			Errors: map[string]string{"general": "Неверный метод запроса"},
		})
		return
	}

	name := strings.TrimSpace(ctx.PostForm("name"))
	phone := repository.NormalizePhone(ctx.PostForm("phone"))
	email := strings.TrimSpace(ctx.PostForm("email"))
	notes := ctx.PostForm("notes")

	fieldErrors := make(map[string]string)
	if name == "" {
		fieldErrors["name"] = "Имя клиента обязательно"
	}
	if phone == "" {
		fieldErrors["phone"] = "Телефон обязателен"
	} else if !utils.ValidatePhone(phone) {
		fieldErrors["phone"] = "Введите корректный номер телефона в международном формате"
	}
	if len(fieldErrors) > 0 {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{Errors: fieldErrors})
		return
	}

	exists, err := h.Repository.ClientExistsByPhone(phone)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	if exists {
		ctx.JSON(http.StatusBadRequest, dto.FieldErrors{
			Errors: map[string]string{"phone": "Клиент с таким телефоном уже существует"},
		})
		return
	}

	client, err := h.Repository.CreateClient(name, phone, email, notes)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.Redirect(http.StatusFound, "/client/"+strconv.FormatUint(uint64(client.ID), 10)+"/")
}
