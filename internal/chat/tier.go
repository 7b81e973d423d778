package chat

import (
	"errors"
	"fmt"
	"time"
)

// MinSuperChatAmount is the smallest amount accepted for a super chat.
const MinSuperChatAmount int64 = 1000

// ErrAmountBelowMinimum is returned for super chat amounts under
// MinSuperChatAmount.
var ErrAmountBelowMinimum = errors.New("chat: super chat amount below minimum")

// Tier is one row of the super chat display table.
type Tier struct {
	MinAmount int64
	Color     string
	Duration  time.Duration
	Label     string
}

// tiers is ordered ascending by MinAmount.
var tiers = []Tier{
	{MinAmount: 1000, Color: "#1E88E5", Duration: 30 * time.Second, Label: "Blue"},
	{MinAmount: 5000, Color: "#00BFA5", Duration: 60 * time.Second, Label: "Teal"},
	{MinAmount: 10000, Color: "#FFB300", Duration: 120 * time.Second, Label: "Yellow"},
	{MinAmount: 20000, Color: "#F4511E", Duration: 300 * time.Second, Label: "Orange"},
	{MinAmount: 50000, Color: "#D50000", Duration: 600 * time.Second, Label: "Red"},
}

// Tiers returns a copy of the tier table, ascending by minimum amount.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor returns the highest tier whose minimum is at most amount. ok is
// false for amounts below the first tier.
func TierFor(amount int64) (tier Tier, ok bool) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if amount >= tiers[i].MinAmount {
			return tiers[i], true
		}
	}
	return Tier{}, false
}

// ValidateSuperChatAmount rejects amounts that no tier accepts. It is meant
// for input-time checks, before anything is sent.
func ValidateSuperChatAmount(amount int64) error {
	if amount < MinSuperChatAmount {
		return fmt.Errorf("%w: %d < %d", ErrAmountBelowMinimum, amount, MinSuperChatAmount)
	}
	return nil
}
