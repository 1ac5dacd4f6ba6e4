package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
)

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateAll(context.Context) (int64, error) {
	c.calls++
	return 3, c.err
}

func TestInvalidateOnChange(t *testing.T) {
	tests := []struct {
		state      string
		invalidate bool
	}{
		{gdrive.StateChange, true},
		{gdrive.StateUpdate, true},
		{gdrive.StateAdd, false},
		{gdrive.StateRemove, false},
		{gdrive.StateTrash, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			inv := &countingInvalidator{}

			var forwarded []string

			fn := invalidateOnChange(inv, discardLogger(), func(n gdrive.Notification) {
				forwarded = append(forwarded, n.ResourceState)
			})
			fn(gdrive.Notification{ChannelID: "c", ResourceState: tt.state})

			if tt.invalidate {
				assert.Equal(t, 1, inv.calls)
			} else {
				assert.Zero(t, inv.calls)
			}

			assert.Equal(t, []string{tt.state}, forwarded)
		})
	}
}

func TestInvalidateOnChange_ErrorStillForwards(t *testing.T) {
	inv := &countingInvalidator{err: errors.New("db locked")}
	called := false

	invalidateOnChange(inv, discardLogger(), func(gdrive.Notification) { called = true })(
		gdrive.Notification{ResourceState: gdrive.StateChange},
	)

	assert.Equal(t, 1, inv.calls)
	assert.True(t, called)
}

func TestRenewalDelay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration time.Time
		ttl        time.Duration
		want       time.Duration
	}{
		{"long channel renews early", now.Add(24 * time.Hour), time.Hour, 24*time.Hour - channelRenewBefore},
		{"no expiration uses ttl", time.Time{}, time.Hour, time.Hour - channelRenewBefore},
		{"short channel halves", now.Add(6 * time.Minute), time.Hour, 3 * time.Minute},
		{"expired floors at a second", now.Add(-time.Minute), time.Hour, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renewalDelay(tt.expiration, now, tt.ttl))
		})
	}
}
