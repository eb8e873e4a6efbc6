// internal/services/visitor_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/models"
)

func newVisitorService(t *testing.T) (*VisitorService, *fakeLookuper) {
	db := openTestDB(t)
	lookuper := &fakeLookuper{}
	return NewVisitorService(db, lookuper), lookuper
}

func TestEnsureCreatesProfileWithoutGeocoding(t *testing.T) {
	svc, lookuper := newVisitorService(t)

	profile, err := svc.Ensure(context.Background(), "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v-1", profile.VisitorID)
	assert.Equal(t, "203.0.113.7", profile.LastIP)

	// First contact never calls the provider.
	assert.Equal(t, 0, lookuper.forwardCalls)
}

func TestEnsureGeocodesOnIPChangeWhenLocationMissing(t *testing.T) {
	svc, lookuper := newVisitorService(t)
	lookuper.forwardLoc = geo.Location{Country: "Bulgaria", City: "Sofia"}
	ctx := context.Background()

	_, err := svc.Ensure(ctx, "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)

	profile, err := svc.Ensure(ctx, "v-1", "198.51.100.1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, lookuper.forwardCalls)
	require.NotNil(t, profile.Country)
	assert.Equal(t, "Bulgaria", *profile.Country)
	assert.Equal(t, "198.51.100.1", profile.LastIP)
}

func TestEnsureSameIPDoesNotGeocode(t *testing.T) {
	svc, lookuper := newVisitorService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)
	_, err = svc.Ensure(ctx, "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, lookuper.forwardCalls)
}

func TestEnsureResolvedLocationSkipsGeocode(t *testing.T) {
	svc, lookuper := newVisitorService(t)
	ctx := context.Background()

	profile := models.VisitorProfile{
		VisitorID: "v-1",
		LastIP:    "203.0.113.7",
		Country:   strPtr("Bulgaria"),
		City:      strPtr("Sofia"),
	}
	require.NoError(t, svc.db.Create(&profile).Error)

	// New IP but the place name is already known.
	_, err := svc.Ensure(ctx, "v-1", "198.51.100.1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, lookuper.forwardCalls)
}

func TestEnsureLookupFailureLeavesLocationEmpty(t *testing.T) {
	svc, lookuper := newVisitorService(t)
	ctx := context.Background()

	// The fake returns an empty location, mimicking a provider failure.
	_, err := svc.Ensure(ctx, "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)

	profile, err := svc.Ensure(ctx, "v-1", "198.51.100.1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, lookuper.forwardCalls)
	assert.Nil(t, profile.Country)
	assert.Nil(t, profile.City)
}

func TestEnsureBrowserCoordinatesWin(t *testing.T) {
	svc, _ := newVisitorService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, "v-1", "203.0.113.7", nil, nil)
	require.NoError(t, err)

	profile, err := svc.Ensure(ctx, "v-1", "203.0.113.7", floatPtr(42.70), floatPtr(23.32))
	require.NoError(t, err)
	require.NotNil(t, profile.Latitude)
	assert.Equal(t, 42.70, *profile.Latitude)
	require.NotNil(t, profile.Longitude)
	assert.Equal(t, 23.32, *profile.Longitude)
}

func TestEnsureEmptyVisitorIDRejected(t *testing.T) {
	svc, _ := newVisitorService(t)

	_, err := svc.Ensure(context.Background(), "", "203.0.113.7", nil, nil)
	assert.ErrorIs(t, err, ErrVisitorIDRequired)
}

func TestGetUnknownVisitorReturnsNil(t *testing.T) {
	svc, _ := newVisitorService(t)

	profile, err := svc.Get("never-seen")
	require.NoError(t, err)
	assert.Nil(t, profile)
}
