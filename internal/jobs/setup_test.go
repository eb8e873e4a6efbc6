// internal/jobs/setup_test.go
package jobs

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

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:jobs_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.VisitorProfile{},
		&models.Product{},
		&models.ProductView{},
		&models.EmailOTP{},
		&models.RateEvent{},
		&models.JobLock{},
	)
	require.NoError(t, err)

	return db
}

// fakeLookuper maps coordinates to canned place names and records calls.
type fakeLookuper struct {
	reverse      map[[2]float64][2]string
	reverseCalls int
}

func (f *fakeLookuper) Forward(ctx context.Context, ip string) geo.Location {
	return geo.Location{}
}

func (f *fakeLookuper) Reverse(ctx context.Context, lat, lon float64) (string, string) {
	f.reverseCalls++
	if result, ok := f.reverse[[2]float64{lat, lon}]; ok {
		return result[0], result[1]
	}
	return "", ""
}

func floatPtr(f float64) *float64 { return &f }
