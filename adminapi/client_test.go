package adminapi_test

import (
	"context"
	"testing"

	"github.com/ledgerops/go-console-auth/adminapi"
	"github.com/ledgerops/go-console-auth/internal/backendtest"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) (*adminapi.Client, *backendtest.Backend) {
	t.Helper()
	backend := backendtest.New()
	t.Cleanup(backend.Close)

	client, err := adminapi.New(backend.URL(), func() string { return "access-token-1" })
	require.NoError(t, err)
	return client, backend
}

func TestListUsersPaginates(t *testing.T) {
	client, backend := setupClient(t)
	backend.Seed("users",
		map[string]any{"id": "u-1", "email": "alice@example.com", "status": "ACTIVE"},
		map[string]any{"id": "u-2", "email": "bob@example.com", "status": "PENDING"},
		map[string]any{"id": "u-3", "email": "carol@example.com", "status": "ACTIVE"},
	)

	page, err := client.ListUsers(context.Background(), adminapi.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.TotalCount)
	require.Equal(t, "u-1", page.Items[0].ID)

	page, err = client.ListUsers(context.Background(), adminapi.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "u-3", page.Items[0].ID)
}

func TestListBeyondRangeIsEmpty(t *testing.T) {
	client, backend := setupClient(t)
	backend.Seed("settlements")

	page, err := client.ListSettlements(context.Background(), adminapi.PageRequest{Page: 4, Size: 20})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Zero(t, page.TotalCount)
}

func TestUpdateStatusRecordsTransition(t *testing.T) {
	client, backend := setupClient(t)

	err := client.UpdateStoreStatus(context.Background(), "s-9", adminapi.StatusSuspended, "chargeback fraud")
	require.NoError(t, err)

	updates := backend.StatusUpdates()
	require.Len(t, updates, 1)
	require.Equal(t, backendtest.StatusUpdate{
		Resource: "stores",
		ID:       "s-9",
		Status:   "SUSPENDED",
		Reason:   "chargeback fraud",
	}, updates[0])
}

func TestUpdateStatusOmitsEmptyReason(t *testing.T) {
	client, backend := setupClient(t)

	err := client.UpdateTokenRequestStatus(context.Background(), "tr-1", adminapi.StatusApproved, "")
	require.NoError(t, err)

	updates := backend.StatusUpdates()
	require.Len(t, updates, 1)
	require.Empty(t, updates[0].Reason)
	require.Equal(t, "token-requests", updates[0].Resource)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	backend := backendtest.New()
	t.Cleanup(backend.Close)

	client, err := adminapi.New(backend.URL(), func() string { return "" })
	require.NoError(t, err)

	_, err = client.ListBanks(context.Background(), adminapi.PageRequest{Size: 10})
	require.ErrorIs(t, err, adminapi.UnauthorizedErr)
}
