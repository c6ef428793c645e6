package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	synctypes "fastTrackAPI/internal/types/sync"
)

func TestMergeOutcome_LastWriteWins(t *testing.T) {
	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	t.Run("unknown id inserts", func(t *testing.T) {
		assert.Equal(t, synctypes.OutcomeInserted, mergeOutcome(newer, nil))
	})

	t.Run("newer client wins", func(t *testing.T) {
		server := &serverRow{updatedAt: older}
		assert.Equal(t, synctypes.OutcomeUpdated, mergeOutcome(newer, server))
	})

	t.Run("newer server wins", func(t *testing.T) {
		server := &serverRow{updatedAt: newer}
		assert.Equal(t, synctypes.OutcomeKeptLocal, mergeOutcome(older, server))
	})

	t.Run("tie keeps server", func(t *testing.T) {
		server := &serverRow{updatedAt: newer}
		assert.Equal(t, synctypes.OutcomeKeptLocal, mergeOutcome(newer, server))
	})

	t.Run("tombstone always wins", func(t *testing.T) {
		// A server-side delete must not be resurrected even by a newer
		// client edit.
		server := &serverRow{updatedAt: older, deleted: true}
		assert.Equal(t, synctypes.OutcomeTombstone, mergeOutcome(newer, server))
	})
}
