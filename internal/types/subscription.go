package types

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the billing processor's subscription states.
// The billing integration owns writes; this core only reads.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// SubscriptionRecord is one (user, creator) subscription. The pair is a
// unique natural key in the durable store.
type SubscriptionRecord struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"userId"`
	CreatorID        uuid.UUID          `json:"creatorId"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"currentPeriodEnd"`
}

// IsEntitling reports whether the record grants content access at the
// given instant: active or trialing always, canceled only while the paid
// period has not yet elapsed. past_due does not entitle; it carries its
// own denial reason rather than folding into "no subscription".
func (s *SubscriptionRecord) IsEntitling(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing:
		return true
	case SubscriptionCanceled:
		return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
	default:
		return false
	}
}

// SubscriptionGrant is the subscription slice attached to grant verdicts.
type SubscriptionGrant struct {
	ID        uuid.UUID          `json:"id"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expiresAt"`
}

// CachedSubscriptionEntry is the versioned cache payload for a
// (user, creator) pair. IsActive is the value computed at write time; a
// canceled entry must be re-derived against ExpiresAt on every read
// because the grace period can elapse between cache writes.
type CachedSubscriptionEntry struct {
	Version        int                `json:"v"`
	IsActive       bool               `json:"isActive"`
	Status         SubscriptionStatus `json:"status"`
	SubscriptionID uuid.UUID          `json:"subscriptionId"`
	ExpiresAt      *time.Time         `json:"expiresAt"`
	CachedAt       time.Time          `json:"cachedAt"`
}

// CachedSubscriptionEntryVersion guards against shape drift: entries
// carrying a different version are treated as cache misses.
const CachedSubscriptionEntryVersion = 1

// ReasonForStatus maps a subscription status (or nil for "no record") to
// a denial reason. It is total over status|nil: unknown states map to
// no_subscription. A canceled record whose paid period has already
// elapsed reads as subscription_expired; canceled with no period end
// reads as subscription_canceled.
func ReasonForStatus(status *SubscriptionStatus, periodEnd *time.Time, now time.Time) AccessReason {
	if status == nil {
		return ReasonNoSubscription
	}
	switch *status {
	case SubscriptionActive:
		return ReasonActiveSubscription
	case SubscriptionTrialing:
		return ReasonTrialing
	case SubscriptionCanceled:
		if periodEnd != nil && !periodEnd.After(now) {
			return ReasonSubscriptionExpired
		}
		return ReasonSubscriptionCanceled
	case SubscriptionPastDue:
		return ReasonSubscriptionPastDue
	default:
		return ReasonNoSubscription
	}
}
