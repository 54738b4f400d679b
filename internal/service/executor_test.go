package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipilot/clipilot/internal/journal"
	"github.com/clipilot/clipilot/pkg/session"
)

func TestStatusForMapsErrors(t *testing.T) {
	ctx := context.Background()

	rejected := &session.ConfigRejectedError{Command: "bad cmd", Output: "% Invalid"}
	assert.Equal(t, journal.StatusRejected, statusFor(rejected, ctx))

	assert.Equal(t, journal.StatusFailed, statusFor(errors.New("boom"), ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, journal.StatusCancelled, statusFor(errors.New("interrupted"), cancelled))
	assert.Equal(t, journal.StatusCancelled, statusFor(context.Canceled, ctx))
}

func TestPoolTargetNormalizesPlatform(t *testing.T) {
	pt := poolTarget(DeviceTarget{Host: "10.0.0.1", Port: 22, Username: "admin", Platform: "unknown_thing"})
	assert.Equal(t, "default", pt.Platform)
	assert.Equal(t, "10.0.0.1", pt.Host)
}
