package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tick makes every stored record one second newer than the previous one.
func tick(m *memDB) {
	t := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m.clock = func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNormalizePagination(t *testing.T) {
	tests := []struct {
		in      Pagination
		want    Pagination
		wantErr bool
	}{
		{in: Pagination{}, want: Pagination{Limit: DefaultHistoryLimit}},
		{in: Pagination{Limit: 1, Offset: 3}, want: Pagination{Limit: 1, Offset: 3}},
		{in: Pagination{Limit: 100}, want: Pagination{Limit: 100}},
		{in: Pagination{Limit: 101}, wantErr: true},
		{in: Pagination{Limit: -1}, wantErr: true},
		{in: Pagination{Limit: 5, Offset: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.in), func(t *testing.T) {
			got, err := normalizePagination(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListHistory_NewestFirstAndPaged(t *testing.T) {
	ts := newTestServices(nil)
	tick(ts.mem)
	ts.searchP.items = threeHits()
	ctx := context.Background()
	caller := Caller{UserID: "u1"}

	for i := 0; i < 4; i++ {
		_, err := ts.search.PerformSearch(ctx, caller, fmt.Sprintf("q%d", i), 5, true)
		require.NoError(t, err)
	}
	_, err := ts.search.PerformSearch(ctx, Caller{UserID: "u2"}, "other", 5, true)
	require.NoError(t, err)

	h, err := ts.records.ListHistory(ctx, caller, models.KindSearch, Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, h.Searches, 2)
	assert.Equal(t, "q3", h.Searches[0].Query)
	assert.Equal(t, "q2", h.Searches[1].Query)

	h, err = ts.records.ListHistory(ctx, caller, models.KindSearch, Pagination{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, h.Searches, 2)
	assert.Equal(t, "q1", h.Searches[0].Query)
	assert.Equal(t, "q0", h.Searches[1].Query)
}

func TestListHistory_ImagesResolveArchivedKeys(t *testing.T) {
	store := &fakeArtifactStore{}
	ts := newTestServices(store)
	ts.imageP.artifact = models.Artifact{Data: inlinePNG}
	ctx := context.Background()
	caller := Caller{UserID: "u1"}

	_, err := ts.image.GenerateImage(ctx, caller, "a cat", validParams(), true)
	require.NoError(t, err)

	h, err := ts.records.ListHistory(ctx, caller, models.KindImage, Pagination{})
	require.NoError(t, err)
	require.Len(t, h.Images, 1)
	assert.Contains(t, h.Images[0].Artifact.URL, "https://signed.example/images/u1/")
	assert.Empty(t, h.Images[0].Artifact.StorageKey)
}

func TestListHistory_Errors(t *testing.T) {
	ts := newTestServices(nil)
	ctx := context.Background()

	_, err := ts.records.ListHistory(ctx, Caller{UserID: "u1"}, models.RecordKind("video"), Pagination{})
	assert.ErrorIs(t, err, common.ErrorValidation)

	ts.mem.searchesErr = errBoom{}
	_, err = ts.records.ListHistory(ctx, Caller{UserID: "u1"}, models.KindSearch, Pagination{})
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestDeleteRecord_NonOwnerGetsNotFound(t *testing.T) {
	ts := newTestServices(nil)
	ts.searchP.items = threeHits()
	ctx := context.Background()
	owner := Caller{UserID: "u1", Role: models.RoleUser}
	other := Caller{UserID: "u2", Role: models.RoleUser}

	res, err := ts.search.PerformSearch(ctx, owner, "ownership", 5, true)
	require.NoError(t, err)

	err = ts.records.DeleteRecord(ctx, other, models.KindSearch, res.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Len(t, ts.mem.searches, 1)
}

func TestDeleteRecord_AdminMayDeleteAny(t *testing.T) {
	ts := newTestServices(nil)
	ctx := context.Background()
	owner := Caller{UserID: "u1", Role: models.RoleUser}
	admin := Caller{UserID: "root", Role: models.RoleAdmin}

	res, err := ts.image.GenerateImage(ctx, owner, "a cat", validParams(), true)
	require.NoError(t, err)

	require.NoError(t, ts.records.DeleteRecord(ctx, admin, models.KindImage, res.ID))
	assert.Empty(t, ts.mem.images)
}

func TestDeleteRecord_UnknownOrMalformedID(t *testing.T) {
	ts := newTestServices(nil)
	ctx := context.Background()
	caller := Caller{UserID: "u1"}

	assert.ErrorIs(t, ts.records.DeleteRecord(ctx, caller, models.KindSearch, "not-a-uuid"), common.ErrorNotFound)
	assert.ErrorIs(t, ts.records.DeleteRecord(ctx, caller, models.KindImage, uuid.NewString()), common.ErrorNotFound)
	assert.ErrorIs(t, ts.records.DeleteRecord(ctx, caller, models.RecordKind("x"), uuid.NewString()), common.ErrorValidation)
}

func TestDeleteRecord_StoreFailure(t *testing.T) {
	ts := newTestServices(nil)
	ts.mem.searchesErr = errBoom{}

	err := ts.records.DeleteRecord(context.Background(), Caller{UserID: "u1"}, models.KindSearch, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrorInternal)
}
