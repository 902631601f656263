package billing

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBlockDuration = errors.New("billing: block duration must be positive")
	ErrGracePeriod   = errors.New("billing: grace period must not be negative")
	ErrNoRate        = errors.New("billing: price per hour is not set")
)

// Policy is the hall-wide table rental pricing configuration.
// It is pure config; Quote does all the arithmetic.
type Policy struct {
	EnableBlockBilling bool
	BlockMinutes       int
	GraceMinutes       int
}

func (p Policy) Validate() error {
	if p.EnableBlockBilling && p.BlockMinutes <= 0 {
		return ErrBlockDuration
	}
	if p.GraceMinutes < 0 {
		return ErrGracePeriod
	}
	return nil
}

// Quote is the outcome of evaluating the policy for one session.
// Fee is what gets billed; Calculated is what the policy computed before a
// manual override, kept so the UI can contrast the two.
type Quote struct {
	Minutes    int
	Fee        int64
	Calculated int64
	Overridden bool
	Blocks     int
	InGrace    bool
	Label      string
}

// Inputs for a live session quote. CustomMinutes replaces the measured
// elapsed time, CustomFee replaces the computed fee.
type Inputs struct {
	StartedAt     time.Time
	Now           time.Time
	PricePerHour  int64
	CustomMinutes *int
	CustomFee     *int64
}

// QuoteSession resolves the effective minutes (duration override wins over
// wall clock) and evaluates the policy. Clock skew can make Now precede
// StartedAt; elapsed clamps at zero rather than going negative.
func (p Policy) QuoteSession(in Inputs) (Quote, error) {
	minutes := 0
	if in.CustomMinutes != nil {
		minutes = *in.CustomMinutes
	} else {
		minutes = int(in.Now.Sub(in.StartedAt) / time.Minute)
	}
	if minutes < 0 {
		minutes = 0
	}

	q, err := p.Evaluate(minutes, in.PricePerHour)
	if err != nil {
		return Quote{}, err
	}
	if in.CustomFee != nil {
		q.Fee = *in.CustomFee
		q.Overridden = true
	}
	return q, nil
}

// Evaluate computes the table fee for a whole-minute duration.
//
//   - inside the grace window the time is free ("warm-up")
//   - block billing charges ceil(minutes/block) blocks, minimum one, with
//     the total rounded up to the nearest 1000 so change stays round
//   - otherwise the fee is prorated per minute, rounded half-up
func (p Policy) Evaluate(minutes int, pricePerHour int64) (Quote, error) {
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	if pricePerHour <= 0 {
		return Quote{}, ErrNoRate
	}
	if minutes < 0 {
		minutes = 0
	}

	q := Quote{Minutes: minutes}

	if minutes < p.GraceMinutes {
		q.InGrace = true
		q.Label = fmt.Sprintf("%s (warm-up)", formatClock(minutes))
		return q, nil
	}

	if p.EnableBlockBilling {
		blocks := (minutes + p.BlockMinutes - 1) / p.BlockMinutes
		if blocks < 1 {
			blocks = 1
		}
		// blocks * pricePerHour * (block/60), rounded up to the next 1000.
		raw := pricePerHour * int64(p.BlockMinutes) * int64(blocks)
		fee := (raw + 60*1000 - 1) / (60 * 1000) * 1000
		q.Blocks = blocks
		q.Fee = fee
		q.Calculated = fee
		q.Label = fmt.Sprintf("%s (%d block)", formatClock(minutes), blocks)
		return q, nil
	}

	// Continuous proration, round half-up.
	fee := (pricePerHour*int64(minutes) + 30) / 60
	q.Fee = fee
	q.Calculated = fee
	q.Label = formatClock(minutes)
	return q, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%dh %dp", minutes/60, minutes%60)
}
