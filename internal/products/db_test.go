package product

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/dbtest"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("SURPLUS_DB_DSN")
	if dsn == "" {
		t.Skip("SURPLUS_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func TestApplySaleNeverOversellsPostgres(t *testing.T) {
	conn := openTestDB(t)
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	_, vendor := dbtest.MustCreateVendor(t, conn)
	category := dbtest.MustCreateCategory(t, conn)
	product := dbtest.MustCreateProduct(t, conn, vendor.ID, category.ID, func(p *models.Product) {
		p.StockQuantity = 5
	})
	t.Cleanup(func() {
		conn.Delete(&models.Product{}, "id = ?", product.ID)
	})

	repo := NewRepository(conn)
	var (
		wg   sync.WaitGroup
		sold atomic.Int64
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ApplySale(context.Background(), product.ID, 1)
			if err != nil {
				t.Errorf("apply sale: %v", err)
				return
			}
			if ok {
				sold.Add(1)
			}
		}()
	}
	wg.Wait()

	if sold.Load() != 5 {
		t.Fatalf("expected 5 successful sales, got %d", sold.Load())
	}
	reloaded, err := repo.FindByID(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StockQuantity != 0 || reloaded.SoldCount != 5 {
		t.Fatalf("unexpected counters stock=%d sold=%d", reloaded.StockQuantity, reloaded.SoldCount)
	}
}
