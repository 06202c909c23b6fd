package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"crm-backend/internal/app/ds"
	"crm-backend/internal/app/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTest поднимает обработчики на in-memory sqlite и роутер
// с JSON-маршрутами (HTML-страницы требуют шаблонов и здесь не регистрируются).
func setupTest(t *testing.T) (*repository.Repository, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := repository.NewFromDB(db)
	h := NewHandler(repo)
	api := NewAPIHandler(repo, nil, nil)

	router := gin.New()
	router.GET("/deal/create/", h.CreateDeal)
	router.POST("/deal/create/", h.CreateDeal)
	router.POST("/deal/:id/update_status/", h.UpdateDealStatus)
	router.POST("/deal/:id/restore/", h.RestoreDeal)
	router.DELETE("/deal/delete/:id/", h.DeleteDeal)
	router.POST("/client/create/", h.CreateClient)
	router.GET("/api/find_client/", api.FindClient)
	router.POST("/api/services/", api.CreateService)

	return repo, router
}

func postForm(t *testing.T, router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return body
}

func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decodeJSON(t, w)
	errs, ok := body["errors"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no errors object: %q", w.Body.String())
	}
	return errs
}

func seedService(t *testing.T, repo *repository.Repository, name string, price float64) uint {
	t.Helper()
	service, err := repo.CreateService(repository.CreateServiceInput{
		Name: name, Price: price, IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return service.ID
}

func dealForm(serviceID uint) url.Values {
	start := time.Now().Add(2 * time.Hour)
	return url.Values{
		"client_name":  {"Иван Петров"},
		"client_phone": {"+79161234567"},
		"status":       {ds.StatusNew},
		"start_date":   {start.Format("2006-01-02T15:04")},
		"end_date":     {start.AddDate(0, 0, 10).Format("2006-01-02T15:04")},
		"services[]":   {strconv.FormatUint(uint64(serviceID), 10)},
		"prices[]":     {""},
	}
}

func TestCreateDealRejectsWrongMethod(t *testing.T) {
	_, router := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/deal/create/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("code = %d, want 405", w.Code)
	}
	errs := fieldErrors(t, w)
	if errs["general"] != "Неверный метод запроса" {
		t.Errorf("general error = %v", errs["general"])
	}
}

func TestCreateDealMissingFields(t *testing.T) {
	_, router := setupTest(t)

	w := postForm(t, router, "/deal/create/", url.Values{"client_name": {"Иван"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	errs := fieldErrors(t, w)
	if _, ok := errs["general"]; !ok {
		t.Errorf("want general error, got %v", errs)
	}
}

func TestCreateDealInvalidPhone(t *testing.T) {
	repo, router := setupTest(t)
	form := dealForm(seedService(t, repo, "Услуга", 1000))
	form.Set("client_phone", "not-a-phone")

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["client_phone"]; !ok {
		t.Errorf("want client_phone error, got %s", w.Body.String())
	}
}

func TestCreateDealEndBeforeStart(t *testing.T) {
	repo, router := setupTest(t)
	form := dealForm(seedService(t, repo, "Услуга", 1000))
	start := time.Now().Add(2 * time.Hour)
	form.Set("start_date", start.Format("2006-01-02T15:04"))
	form.Set("end_date", start.Add(-time.Hour).Format("2006-01-02T15:04"))

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["end_date"]; !ok {
		t.Errorf("want end_date error, got %s", w.Body.String())
	}
}

func TestCreateDealStartInPast(t *testing.T) {
	repo, router := setupTest(t)
	form := dealForm(seedService(t, repo, "Услуга", 1000))
	form.Set("start_date", time.Now().AddDate(0, 0, -2).Format("2006-01-02T15:04"))

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["start_date"]; !ok {
		t.Errorf("want start_date error, got %s", w.Body.String())
	}
}

func TestCreateDealWithoutServices(t *testing.T) {
	repo, router := setupTest(t)
	form := dealForm(seedService(t, repo, "Услуга", 1000))
	form.Del("services[]")

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["services"]; !ok {
		t.Errorf("want services error, got %s", w.Body.String())
	}
}

func TestCreateDealUnknownService(t *testing.T) {
	_, router := setupTest(t)
	form := dealForm(999)

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["service"]; !ok {
		t.Errorf("want service error, got %s", w.Body.String())
	}
}

func TestCreateDealSuccess(t *testing.T) {
	repo, router := setupTest(t)
	form := dealForm(seedService(t, repo, "Разработка сайта", 50000))

	w := postForm(t, router, "/deal/create/", form)
	if w.Code != http.StatusFound {
		t.Fatalf("code = %d, want 302 redirect, body %s", w.Code, w.Body.String())
	}

	total, _ := repo.TotalDeals()
	if total != 1 {
		t.Fatalf("deals = %d, want 1", total)
	}

	// Клиент создан по телефону, цена снята с каталога
	client, err := repo.FindClientByPhone("+79161234567")
	if err != nil {
		t.Fatalf("client not created: %v", err)
	}
	spent, _ := repo.ClientDealsCount(client.ID)
	if spent != 1 {
		t.Errorf("client deals = %d, want 1", spent)
	}
}

func TestUpdateDealStatusInvalid(t *testing.T) {
	repo, router := setupTest(t)
	serviceID := seedService(t, repo, "Услуга", 1000)
	dealID, err := repo.CreateDeal(repository.CreateDealInput{
		ClientName: "Иван", ClientPhone: "+79161234567", Status: ds.StatusNew,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 7),
		Services: []repository.ServiceSelection{{ServiceID: serviceID}},
	})
	if err != nil {
		t.Fatalf("seed deal: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"status": "garbage"})
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/deal/%d/update_status/", dealID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	body := decodeJSON(t, w)
	if body["message"] != "Неверный статус" {
		t.Errorf("message = %v", body["message"])
	}
	statuses, ok := body["valid_statuses"].([]interface{})
	if !ok || len(statuses) != 7 {
		t.Errorf("valid_statuses = %v, want 7 entries", body["valid_statuses"])
	}
}

func TestUpdateDealStatusSuccess(t *testing.T) {
	repo, router := setupTest(t)
	serviceID := seedService(t, repo, "Услуга", 1000)
	dealID, _ := repo.CreateDeal(repository.CreateDealInput{
		ClientName: "Иван", ClientPhone: "+79161234567", Status: ds.StatusNew,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 7),
		Services: []repository.ServiceSelection{{ServiceID: serviceID}},
	})

	payload, _ := json.Marshal(map[string]string{"status": ds.StatusSuccessful})
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/deal/%d/update_status/", dealID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeJSON(t, w)
	if body["success"] != true || body["new_status"] != ds.StatusSuccessful {
		t.Errorf("body = %v", body)
	}
	if body["status_display"] != "Успешная" {
		t.Errorf("status_display = %v", body["status_display"])
	}
}

func TestUpdateDealStatusMissingDeal(t *testing.T) {
	_, router := setupTest(t)

	w := postForm(t, router, "/deal/999/update_status/", url.Values{"status": {ds.StatusNew}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404, body %s", w.Code, w.Body.String())
	}
}

func TestDeleteDealReturnsJSON(t *testing.T) {
	repo, router := setupTest(t)
	serviceID := seedService(t, repo, "Услуга", 1000)
	dealID, _ := repo.CreateDeal(repository.CreateDealInput{
		ClientName: "Иван", ClientPhone: "+79161234567", Status: ds.StatusNew,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 7),
		Services: []repository.ServiceSelection{{ServiceID: serviceID}},
	})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/deal/delete/%d/", dealID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	if decodeJSON(t, w)["success"] != true {
		t.Errorf("body = %s", w.Body.String())
	}

	total, _ := repo.TotalDeals()
	if total != 0 {
		t.Errorf("deal survived delete")
	}
}

func TestCreateClientDuplicatePhone(t *testing.T) {
	repo, router := setupTest(t)
	if _, err := repo.CreateClient("Иван", "+79161234567", "", ""); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	w := postForm(t, router, "/client/create/", url.Values{
		"name":  {"Другой Иван"},
		"phone": {"+79161234567"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if _, ok := fieldErrors(t, w)["phone"]; !ok {
		t.Errorf("want phone error, got %s", w.Body.String())
	}
}

func TestCreateClientSupersetPhoneAllowed(t *testing.T) {
	repo, router := setupTest(t)
	if _, err := repo.CreateClient("Иван", "9161234567", "", ""); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	// Новый номер содержит чужой номер как подстроку — это не дубликат
	w := postForm(t, router, "/client/create/", url.Values{
		"name":  {"Петр"},
		"phone": {"+79161234567"},
	})
	if w.Code != http.StatusFound {
		t.Fatalf("code = %d, want 302 redirect, body %s", w.Code, w.Body.String())
	}

	clients, _ := repo.GetAllClients()
	if len(clients) != 2 {
		t.Errorf("clients = %d, want 2", len(clients))
	}
}

func TestFindClientEmptyPhone(t *testing.T) {
	_, router := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/find_client/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decodeJSON(t, w)
	if body["success"] != false {
		t.Errorf("body = %s", w.Body.String())
	}
	if body["message"] != "Не указан телефон" {
		t.Errorf("message = %v, want %q", body["message"], "Не указан телефон")
	}
}

func TestFindClientNotFound(t *testing.T) {
	_, router := setupTest(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/find_client/?phone="+url.QueryEscape("+79990000000"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decodeJSON(t, w)
	if body["success"] != false || body["message"] != "Клиент не найден" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestFindClientFound(t *testing.T) {
	repo, router := setupTest(t)
	if _, err := repo.CreateClient("Иван Петров", "+79161234567", "ivan@example.com", ""); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/find_client/?phone="+url.QueryEscape("+79161234567"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decodeJSON(t, w)
	if body["success"] != true {
		t.Fatalf("body = %s", w.Body.String())
	}
	client, _ := body["client"].(map[string]interface{})
	if client["name"] != "Иван Петров" || client["email"] != "ivan@example.com" {
		t.Errorf("client = %v", client)
	}
}

func TestCreateServiceAPI(t *testing.T) {
	repo, router := setupTest(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"name":  "Продвижение",
		"price": 30000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/services/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeJSON(t, w)
	if body["success"] != true || body["service_id"] == nil {
		t.Fatalf("body = %s", w.Body.String())
	}

	services, _ := repo.GetActiveServices()
	if len(services) != 1 || services[0].Name != "Продвижение" {
		t.Errorf("services = %+v", services)
	}
}

func TestCreateServiceAPIZeroPrice(t *testing.T) {
	repo, router := setupTest(t)

	// Бесплатная услуга: нулевая цена допустима
	payload, _ := json.Marshal(map[string]interface{}{
		"name":  "Бесплатная консультация",
		"price": 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/services/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	if decodeJSON(t, w)["success"] != true {
		t.Fatalf("body = %s", w.Body.String())
	}

	services, _ := repo.GetActiveServices()
	if len(services) != 1 || services[0].Price != 0 {
		t.Errorf("services = %+v", services)
	}
}

func TestCreateServiceAPINegativePrice(t *testing.T) {
	_, router := setupTest(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"name":  "Услуга",
		"price": -100,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/services/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

func TestCreateServiceAPIValidation(t *testing.T) {
	_, router := setupTest(t)

	payload, _ := json.Marshal(map[string]interface{}{"name": "", "price": 100})
	req := httptest.NewRequest(http.MethodPost, "/api/services/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}
