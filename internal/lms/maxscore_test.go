package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxScoreTracker(t *testing.T) {
	t.Run("resolves to maximum observed", func(t *testing.T) {
		tracker := NewMaxScoreTracker()
		tracker.Observe("hw1", Float(10))
		tracker.Observe("hw1", Float(8))
		tracker.Observe("hw1", Float(10))

		got := tracker.Resolve("hw1", Float(8))
		require.NotNil(t, got)
		assert.Equal(t, 10.0, *got)
	})

	t.Run("falls back when never observed", func(t *testing.T) {
		tracker := NewMaxScoreTracker()
		got := tracker.Resolve("hw9", Float(5))
		require.NotNil(t, got)
		assert.Equal(t, 5.0, *got)
	})

	t.Run("nil fallback stays nil", func(t *testing.T) {
		tracker := NewMaxScoreTracker()
		assert.Nil(t, tracker.Resolve("hw9", nil))
	})

	t.Run("ignores nil observations and empty ids", func(t *testing.T) {
		tracker := NewMaxScoreTracker()
		tracker.Observe("hw1", nil)
		tracker.Observe("", Float(10))
		assert.Nil(t, tracker.Resolve("hw1", nil))
	})
}
