package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportInvariant(t *testing.T) {
	r := &Report{Status: StatusPending}
	require.NoError(t, r.CheckInvariant())

	r.AdminNotes = "stray"
	assert.ErrorIs(t, r.CheckInvariant(), ErrResolutionInvariant)

	r = &Report{Status: StatusResolved}
	assert.ErrorIs(t, r.CheckInvariant(), ErrResolutionInvariant)

	r.Apply(Resolution{
		Status:           StatusResolved,
		AdminAction:      ActionWarning,
		AdminNotes:       "first offence",
		NotifyReporter:   true,
		ReporterChannels: []Channel{ChannelInApp},
		ResolvedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, r.CheckInvariant())
	require.NotNil(t, r.ResolvedAt)
	assert.Equal(t, *r.ResolvedAt, r.UpdatedAt)
	assert.True(t, *r.NotifyReporter)
	assert.False(t, *r.NotifyReportedEntity)
}
