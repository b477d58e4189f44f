package repository

import (
	"context"
	"testing"
	"time"

	"calibration-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const claimLease = 10 * time.Minute

func fixedNow() time.Time {
	return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
}

func TestMemoryStore_AddAddressClearsPreviousDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	customer := &models.Customer{CompanyName: "Acme", Email: "ops@acme.test", IsActive: true}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	first := &models.CustomerAddress{CustomerID: customer.ID, AddressLine1: "1 Main", IsDefault: true}
	second := &models.CustomerAddress{CustomerID: customer.ID, AddressLine1: "2 Side", IsDefault: true}
	require.NoError(t, store.AddAddress(ctx, first))
	require.NoError(t, store.AddAddress(ctx, second))

	got, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, got.Addresses, 2)
	assert.Equal(t, second.ID, got.Addresses[0].ID)
	assert.True(t, got.Addresses[0].IsDefault)
	assert.False(t, got.Addresses[1].IsDefault)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateCustomer(ctx, &models.Customer{Email: "a@b.test"}))
	err := store.CreateCustomer(ctx, &models.Customer{Email: "a@b.test"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_ClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := fixedNow()

	n := &models.Notification{CustomerID: 1, Type: models.CustomMessage, Channel: models.ChannelEmail}
	require.NoError(t, store.CreateNotification(ctx, n))

	ok, err := store.ClaimNotification(ctx, n.ID, now, now.Add(-claimLease))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClaimNotification(ctx, n.ID, now.Add(time.Minute), now.Add(time.Minute-claimLease))
	require.NoError(t, err)
	assert.False(t, ok, "live claim must not be taken twice")

	ids, err := store.PendingNotificationIDs(ctx, now.Add(-claimLease), 50)
	require.NoError(t, err)
	assert.Empty(t, ids)

	later := now.Add(claimLease + time.Minute)
	ok, err = store.ClaimNotification(ctx, n.ID, later, later.Add(-claimLease))
	require.NoError(t, err)
	assert.True(t, ok, "stale claim can be reclaimed")

	require.NoError(t, store.ReleaseNotification(ctx, n.ID, "smtp down"))
	got, err := store.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClaimedAt)
	assert.Equal(t, "smtp down", got.LastError)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, store.MarkNotificationSent(ctx, n.ID, later))
	ok, err = store.ClaimNotification(ctx, n.ID, later, later)
	require.NoError(t, err)
	assert.False(t, ok, "sent rows are never claimed")
}

func TestMemoryStore_CountActiveCertificatesByEquipment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateCertificate(ctx, &models.Certificate{
		CertificateNumber: "JIC-1",
		TestEquipmentIDs:  datatypes.NewJSONType([]uint{3, 4}),
	}))
	cancelled := &models.Certificate{
		CertificateNumber: "JIC-2",
		Status:            models.CertificateCancelled,
		TestEquipmentIDs:  datatypes.NewJSONType([]uint{4}),
	}
	require.NoError(t, store.CreateCertificate(ctx, cancelled))

	count, err := store.CountActiveCertificates(ctx, CertificateRef{EquipmentID: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.CountActiveCertificates(ctx, CertificateRef{EquipmentID: 8})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_ListCertificatesByDisplayStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for i, due := range []time.Time{today.AddDate(0, 0, -1), today.AddDate(0, 0, 10), today.AddDate(0, 0, 90)} {
		require.NoError(t, store.CreateCertificate(ctx, &models.Certificate{
			CertificateNumber: "JIC-" + string(rune('A'+i)),
			DueDate:           due,
		}))
	}

	for status, want := range map[string]string{
		models.DisplayExpired:      "JIC-A",
		models.DisplayExpiringSoon: "JIC-B",
		models.DisplayActive:       "JIC-C",
	} {
		rows, total, err := store.ListCertificates(ctx, CertificateFilter{Status: status, Today: today, Page: 1, Limit: 10})
		require.NoError(t, err)
		require.Equal(t, int64(1), total, status)
		assert.Equal(t, want, rows[0].CertificateNumber)
	}
}

func TestMemoryStore_CreateNotificationsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	certID := uint(5)

	err := store.CreateNotifications(ctx, []models.Notification{
		{CustomerID: 1, CertificateID: &certID, Type: models.RenewalReminder, Channel: models.ChannelEmail},
		{CustomerID: 1, CertificateID: &certID, Type: models.RenewalReminder, Channel: "pager"},
	})
	require.Error(t, err)
	exists, err := store.NotificationExists(ctx, certID, models.RenewalReminder)
	require.NoError(t, err)
	assert.False(t, exists, "a rejected batch stores nothing")

	rows := []models.Notification{
		{CustomerID: 1, CertificateID: &certID, Type: models.RenewalReminder, Channel: models.ChannelEmail},
		{CustomerID: 1, CertificateID: &certID, Type: models.RenewalReminder, Channel: models.ChannelSMS},
	}
	require.NoError(t, store.CreateNotifications(ctx, rows))
	assert.NotZero(t, rows[0].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	exists, err = store.NotificationExists(ctx, certID, models.RenewalReminder)
	require.NoError(t, err)
	assert.True(t, exists)
}
