package service

import (
	"time"

	"github.com/heic2pdf/backend/internal/model"
)

// Options carries the knobs shared by the billing services.
type Options struct {
	// Now is the clock used for day boundaries and expiry checks. Defaults to time.Now.
	Now func() time.Time
	// DailyFreeLimit is the per-day conversion allowance for free users.
	DailyFreeLimit int
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.DailyFreeLimit <= 0 {
		o.DailyFreeLimit = model.DefaultDailyFreeLimit
	}
	return o
}
