// internal/services/setup_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/models"
)

// openTestDB gives each test its own in-memory database with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.VisitorProfile{},
		&models.Product{},
		&models.ProductImage{},
		&models.ProductView{},
		&models.ProductLike{},
		&models.ProductReview{},
		&models.EmailOTP{},
		&models.User{},
		&models.ContactMessage{},
		&models.JobLock{},
		&models.RateEvent{},
	)
	require.NoError(t, err)

	return db
}

// fakeLookuper is a canned geo resolver that records its calls.
type fakeLookuper struct {
	forwardLoc   geo.Location
	forwardCalls int

	reverseCountry string
	reverseCity    string
	reverseCalls   int
}

func (f *fakeLookuper) Forward(ctx context.Context, ip string) geo.Location {
	f.forwardCalls++
	return f.forwardLoc
}

func (f *fakeLookuper) Reverse(ctx context.Context, lat, lon float64) (string, string) {
	f.reverseCalls++
	return f.reverseCountry, f.reverseCity
}

func createProduct(t *testing.T, db *gorm.DB, title string) *models.Product {
	t.Helper()

	product := models.Product{
		Title: title,
		SKU:   title + "-sku",
		Price: 99.90,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
