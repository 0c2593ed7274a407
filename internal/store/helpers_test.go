package store_test

import (
	"time"

	"github.com/starford/carnet/internal/store"
	"github.com/starford/carnet/internal/testutil"
)

func storeClock(start time.Time) store.Option {
	return store.WithClock(testutil.StepClock(start, time.Second))
}
