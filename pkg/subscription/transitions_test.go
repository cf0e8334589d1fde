package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fitlab/coachbill/pkg/subscription"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	t.Run("legal edges", func(t *testing.T) {
		t.Parallel()

		legal := []struct{ from, to subscription.Status }{
			{subscription.StatusActive, subscription.StatusPastDue},
			{subscription.StatusActive, subscription.StatusCanceled},
			{subscription.StatusPastDue, subscription.StatusActive},
			{subscription.StatusPastDue, subscription.StatusUnpaid},
			{subscription.StatusUnpaid, subscription.StatusCanceled},
			{subscription.StatusCanceled, subscription.StatusActive},
		}
		for _, e := range legal {
			assert.True(t, subscription.CanTransition(e.from, e.to), "%s -> %s", e.from, e.to)
		}
	})

	t.Run("illegal edges", func(t *testing.T) {
		t.Parallel()

		illegal := []struct{ from, to subscription.Status }{
			{subscription.StatusActive, subscription.StatusActive},
			{subscription.StatusCanceled, subscription.StatusPastDue},
			{subscription.StatusCanceled, subscription.StatusUnpaid},
			{subscription.StatusUnpaid, subscription.StatusPastDue},
		}
		for _, e := range illegal {
			assert.False(t, subscription.CanTransition(e.from, e.to), "%s -> %s", e.from, e.to)
		}
	})
}

func TestTransitionsFrom(t *testing.T) {
	t.Parallel()

	from := subscription.TransitionsFrom(subscription.StatusPastDue)
	assert.Equal(t, []subscription.Status{
		subscription.StatusActive,
		subscription.StatusCanceled,
		subscription.StatusUnpaid,
	}, from)

	assert.Empty(t, subscription.TransitionsFrom(subscription.Status("bogus")))
}
