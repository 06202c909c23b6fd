package handler

import (
	"net/http"

	"crm-backend/internal/app/ds"
	"crm-backend/internal/app/middleware"
	"crm-backend/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler обслуживает HTML-страницы CRM.
type Handler struct {
	Repository *repository.Repository
}

func NewHandler(r *repository.Repository) *Handler {
	return &Handler{Repository: r}
}

// Регистрация статических файлов
func (h *Handler) RegisterStatic(router *gin.Engine) {
	router.LoadHTMLGlob("templates/*")
	router.Static("/static", "./resources")
}

// Регистрация маршрутов страниц и операций со сделками/клиентами
func (h *Handler) RegisterRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/", h.Dashboard)
	router.GET("/statistics/", h.StatisticsPage)
	router.GET("/statistics/update/", h.UpdateStatistics)
	router.GET("/closed/", h.ClosedDeals)
	router.GET("/successful/", h.SuccessfulDeals)
	router.GET("/services/", h.ServicesPage)
	router.GET("/contacts/", h.Contacts)

	// Создание сделки: POST обрабатывает форму, остальные методы — 405
	router.GET("/deal/create/", h.CreateDeal)
	router.POST("/deal/create/", h.CreateDeal)

	router.GET("/deal/:id/", h.DealDetail)
	router.POST("/deal/:id/", authMiddleware.WithAuthCheck(), h.DealDetail) // Добавление комментария
	router.POST("/deal/:id/edit/", h.EditDeal)
	router.POST("/deal/:id/update_status/", h.UpdateDealStatus)
	router.POST("/deal/:id/restore/", h.RestoreDeal)

	// Удаление: DELETE возвращает JSON, POST делает redirect
	router.DELETE("/deal/delete/:id/", h.DeleteDeal)
	router.POST("/deal/delete/:id/", h.DeleteDeal)

	router.GET("/client/create/", h.CreateClient)
	router.POST("/client/create/", h.CreateClient)
	router.GET("/client/:id/", h.ClientDetail)
	router.GET("/client/:id/deals/", h.ClientDeals)
}

// Централизованная обработка ошибок
func (h *Handler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	logrus.Error(err.Error())
	ctx.JSON(errorStatusCode, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

// Dashboard — главная страница: сделки по статусам, просроченные,
// сводные счётчики и популярные услуги.
func (h *Handler) Dashboard(ctx *gin.Context) {
	dealsNew, err := h.Repository.DealsByStatus(ds.StatusNew)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	dealsInProgress, _ := h.Repository.DealsByStatus(ds.StatusInProgress)
	dealsReady, _ := h.Repository.DealsByStatus(ds.StatusReady)
	dealsCompleted, _ := h.Repository.DealsByStatus(ds.StatusCompleted)
	dealsCancelled, _ := h.Repository.DealsByStatus(ds.StatusCancelled)

	expiredDeals, err := h.Repository.ExpiredDeals()
	if err != nil {
		logrus.Error(err)
	}

	statusCounts, err := h.Repository.StatusCounts()
	if err != nil {
		logrus.Error(err)
	}

	totalDeals, _ := h.Repository.TotalDeals()
	totalRevenue, _ := h.Repository.TotalRevenue()
	popularServices, _ := h.Repository.PopularServices(5)

	services, _ := h.Repository.GetActiveServices()
	clients, _ := h.Repository.GetAllClients()

	ctx.HTML(http.StatusOK, "dashboard.html", gin.H{
		"dealsNew":        dealsNew,
		"dealsInProgress": dealsInProgress,
		"dealsReady":      dealsReady,
		"dealsCompleted":  dealsCompleted,
		"dealsCancelled":  dealsCancelled,
		"expiredDeals":    expiredDeals,
		"statusCounts":    statusCounts,
		"totalDeals":      totalDeals,
		"totalRevenue":    totalRevenue,
		"popularServices": popularServices,
		"services":        services,
		"clients":         clients,
		"statusChoices":   ds.StatusChoices,
	})
}

// StatisticsPage — страница отчётов: выручка, конверсия, статистика услуг.
func (h *Handler) StatisticsPage(ctx *gin.Context) {
	stats, err := h.Repository.GetStatistics()
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	// Данные для графика по услугам (до 6 позиций)
	labels := make([]string, 0, 6)
	revenues := make([]float64, 0, 6)
	for i, s := range stats.ServiceStats {
		if i == 6 {
			break
		}
		labels = append(labels, s.Name)
		revenues = append(revenues, s.TotalRevenue)
	}

	ctx.HTML(http.StatusOK, "statistics.html", gin.H{
		"totalRevenue":    stats.TotalRevenue,
		"totalDeals":      stats.TotalDeals,
		"totalCompleted":  stats.TotalCompleted,
		"completedDeals":  stats.CompletedDeals,
		"successfulDeals": stats.SuccessfulDeals,
		"newClients":      stats.NewClients,
		"conversionRate":  stats.ConversionRate,
		"serviceStats":    stats.ServiceStats,
		"servicesLabels":  labels,
		"servicesData":    revenues,
	})
}

// UpdateStatistics — обновление данных графиков (AJAX).
func (h *Handler) UpdateStatistics(ctx *gin.Context) {
	stats, err := h.Repository.GetStatistics()
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	labels := make([]string, 0, 6)
	revenues := make([]float64, 0, 6)
	for i, s := range stats.ServiceStats {
		if i == 6 {
			break
		}
		labels = append(labels, s.Name)
		revenues = append(revenues, s.TotalRevenue)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"services_labels": labels,
		"services_data":   revenues,
		"total_revenue":   stats.TotalRevenue,
		"conversion_rate": stats.ConversionRate,
	})
}

// ServicesPage — каталог услуг с количеством использований и сводкой.
func (h *Handler) ServicesPage(ctx *gin.Context) {
	searchQuery := ctx.Query("search")

	services, err := h.Repository.GetServicesWithUsage(searchQuery)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	stats, err := h.Repository.GetServicesPageStats()
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	categories, _ := h.Repository.GetCategories()

	ctx.HTML(http.StatusOK, "services.html", gin.H{
		"services":    services,
		"categories":  categories,
		"searchQuery": searchQuery,
		"stats":       stats,
	})
}
