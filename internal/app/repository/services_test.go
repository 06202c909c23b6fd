package repository

import (
	"errors"
	"testing"

	"crm-backend/internal/app/ds"
)

func TestCreateServiceDefaults(t *testing.T) {
	r := setupTestRepo(t)

	service, err := r.CreateService(CreateServiceInput{Name: "Аудит", Price: 15000, IsActive: true})
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if service.DurationDays != 7 {
		t.Errorf("duration = %d, want default 7", service.DurationDays)
	}
}

func TestDeleteServiceInUse(t *testing.T) {
	r := setupTestRepo(t)
	service := seedService(t, r, "Услуга", 1000)

	seedDeal(t, r, "+79167770001", "Клиент", ds.StatusNew,
		ServiceSelection{ServiceID: service.ID})

	if err := r.DeleteService(service.ID); !errors.Is(err, ErrServiceInUse) {
		t.Fatalf("err = %v, want ErrServiceInUse", err)
	}

	// Услуга осталась на месте
	if _, err := r.GetServiceByID(service.ID); err != nil {
		t.Errorf("service should survive failed delete: %v", err)
	}

	// Неиспользуемая услуга удаляется
	unused := seedService(t, r, "Неиспользуемая", 500)
	if err := r.DeleteService(unused.ID); err != nil {
		t.Fatalf("DeleteService(unused): %v", err)
	}
	if _, err := r.GetServiceByID(unused.ID); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("err = %v, want ErrServiceNotFound", err)
	}
}

func TestGetActiveServicesExcludesInactive(t *testing.T) {
	r := setupTestRepo(t)
	active := seedService(t, r, "Активная", 1000)
	inactive := seedService(t, r, "Отключенная", 2000)

	if err := r.SetServiceActive(inactive.ID, false); err != nil {
		t.Fatalf("SetServiceActive: %v", err)
	}

	services, err := r.GetActiveServices()
	if err != nil {
		t.Fatalf("GetActiveServices: %v", err)
	}
	if len(services) != 1 || services[0].ID != active.ID {
		t.Errorf("active services: %+v", services)
	}
}

func TestDeleteCategoryDetachesServices(t *testing.T) {
	r := setupTestRepo(t)

	category, err := r.CreateCategory("Разработка", "", 1)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	service, err := r.CreateService(CreateServiceInput{
		Name: "Сайт", Price: 50000, IsActive: true, CategoryID: &category.ID,
	})
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	if err := r.DeleteCategory(category.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	// Услуга остается без категории, но не удаляется
	got, err := r.GetServiceByID(service.ID)
	if err != nil {
		t.Fatalf("GetServiceByID: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("category_id = %v, want NULL after category delete", *got.CategoryID)
	}
}

func TestGetServicesWithUsage(t *testing.T) {
	r := setupTestRepo(t)
	popular := seedService(t, r, "Популярная", 1000)
	seedService(t, r, "Невостребованная", 2000)

	for i := 0; i < 3; i++ {
		seedDeal(t, r, "+7916888000"+string(rune('0'+i)), "Клиент", ds.StatusNew,
			ServiceSelection{ServiceID: popular.ID})
	}

	services, err := r.GetServicesWithUsage("")
	if err != nil {
		t.Fatalf("GetServicesWithUsage: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2", len(services))
	}

	for _, s := range services {
		want := int64(0)
		if s.ID == popular.ID {
			want = 3
		}
		if s.UsageCount != want {
			t.Errorf("service %q usage = %d, want %d", s.Name, s.UsageCount, want)
		}
	}

	filtered, _ := r.GetServicesWithUsage("Популярная")
	if len(filtered) != 1 {
		t.Errorf("search results = %d, want 1", len(filtered))
	}
}
