package main

import (
	"context"
	"testing"
	"time"

	"calibration-backend/config"
	"calibration-backend/models"
	"calibration-backend/services/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTransports_RegistersEveryChannelWithoutCredentials(t *testing.T) {
	reg := newTransports(&config.Config{}, zap.NewNop())

	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelWhatsApp, models.ChannelPush} {
		sender, err := reg.For(ch)
		require.NoError(t, err, ch)
		assert.NotNil(t, sender, ch)
	}

	email, err := reg.For(models.ChannelEmail)
	require.NoError(t, err)
	assert.Error(t, email.Send(context.Background(), transport.Message{}))
}

func TestNewLocker_LocalWithoutRedis(t *testing.T) {
	locker, closeLock, err := newLocker("", zap.NewNop())
	require.NoError(t, err)
	defer closeLock()

	release, ok, err := locker.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	release()
}

func TestNewLocker_RejectsBadURL(t *testing.T) {
	_, _, err := newLocker("://nope", zap.NewNop())
	assert.Error(t, err)
}
