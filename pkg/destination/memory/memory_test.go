package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluice-dev/sluice/pkg/destination"
)

func customer(shopifyID, name string) destination.CustomerRecord {
	return destination.CustomerRecord{
		AccountID: "acct-1",
		SyncJobID: "job-1",
		ShopifyID: shopifyID,
		FullName:  name,
		Status:    "new",
	}
}

func TestCreateAndListPreservesOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, c := range []destination.CustomerRecord{
		customer("1", "Ana García"),
		customer("2", "Bo Chen"),
		customer("3", "Cai Undersea"),
	} {
		require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, c))
	}

	got, err := s.ListRecords(ctx, destination.KindCustomers, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "customers-1", got[0].ID)
	assert.Equal(t, "Ana García", got[0].StringField("full_name"))
	assert.Equal(t, "Cai Undersea", got[2].StringField("full_name"))
}

func TestCreateKeepsProvidedID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, destination.KindSyncJobs, map[string]interface{}{
		"id":     "job-42",
		"status": "pending",
	}))

	got, err := s.ListRecords(ctx, destination.KindSyncJobs, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "job-42", got[0].ID)
}

func TestBlindCreateAppendsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, customer("1", "Ana García")))
	require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, customer("1", "Ana G.")))

	got, err := s.ListRecords(ctx, destination.KindCustomers, nil, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpsertMergesOnAccountAndShopifyID(t *testing.T) {
	s := New(WithUpsert())
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, customer("1", "Ana García")))
	require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, customer("1", "Ana G.")))

	got, err := s.ListRecords(ctx, destination.KindCustomers, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana G.", got[0].StringField("full_name"))
}

func TestPatchRecordMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, destination.KindCustomers, customer("1", "Ana García")))

	require.NoError(t, s.PatchRecord(ctx, destination.KindCustomers, "customers-1", map[string]interface{}{
		"total_value": 15.0,
	}))

	got, err := s.ListRecords(ctx, destination.KindCustomers, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 15.0, got[0].FloatField("total_value"))
	assert.Equal(t, "Ana García", got[0].StringField("full_name"), "unpatched fields survive")
}

func TestPatchMissingRecordFails(t *testing.T) {
	s := New()

	err := s.PatchRecord(context.Background(), destination.KindCustomers, "customers-99", map[string]interface{}{
		"total_value": 1.0,
	})
	assert.Error(t, err)
}

func TestListFilterAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, kind := range []string{"purchase", "purchase", "refund"} {
		require.NoError(t, s.CreateRecord(ctx, destination.KindInteractions, destination.InteractionRecord{
			AccountID:  "acct-1",
			SyncJobID:  "job-1",
			ShopifyID:  string(rune('1' + i)),
			CustomerID: "7",
			Type:       kind,
			Value:      10,
		}))
	}

	purchases, err := s.ListRecords(ctx, destination.KindInteractions, destination.Filter{"type": "purchase"}, 0)
	require.NoError(t, err)
	assert.Len(t, purchases, 2)

	limited, err := s.ListRecords(ctx, destination.KindInteractions, destination.Filter{"type": "purchase"}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
