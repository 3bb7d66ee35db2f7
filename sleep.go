package nodectl

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// jitterRNG is the random source used for sleep jitter. It is seeded once at
// package init time.
var jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))

// SetJitterRNG overrides the RNG used for sleep jitter. Useful for
// deterministic tests.
func SetJitterRNG(r *rand.Rand) {
	if r != nil {
		jitterRNG = r
	}
}

// TimedOut returns an error if the context is done or if the elapsed time
// since startTime exceeds maxTime.
func TimedOut(ctx context.Context, name string, startTime time.Time, maxTime time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if time.Since(startTime) > maxTime {
		return fmt.Errorf("%s timed out(maxTime=%v)", name, maxTime)
	}
	return nil
}

// RandomSleepWithUnit sleeps for a random multiple (1..4) of the provided
// unit duration. Useful to jitter conflicting retries and reduce contention.
func RandomSleepWithUnit(ctx context.Context, unit time.Duration) {
	sleepTime := time.Duration(jitterRNG.Intn(5))
	if sleepTime == 0 {
		sleepTime = 1
	}
	Sleep(ctx, sleepTime*unit)
}

// RandomSleep sleeps for a random duration between 20ms and 80ms.
func RandomSleep(ctx context.Context) {
	RandomSleepWithUnit(ctx, 20*time.Millisecond)
}

// Sleep blocks for the specified duration or until the context is done,
// whichever happens first.
func Sleep(ctx context.Context, sleepTime time.Duration) {
	if sleepTime <= 0 {
		return
	}
	t, cancel := context.WithTimeout(ctx, sleepTime)
	defer cancel()
	<-t.Done()
}
