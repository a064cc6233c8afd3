package types

import "github.com/google/uuid"

// CreatorProfile is the creator row as read by the entitlement core.
// OwnerUserID links the profile to the account that authored it.
type CreatorProfile struct {
	ID                     uuid.UUID `json:"id"`
	OwnerUserID            uuid.UUID `json:"ownerUserId"`
	Handle                 string    `json:"handle"`
	DisplayName            string    `json:"displayName"`
	SubscriptionPriceCents int64     `json:"subscriptionPriceCents"`
	TrialEnabled           bool      `json:"trialEnabled"`
}

// CreatorPaywallInfo is the projection attached to denial verdicts so the
// caller can render an upsell without a second lookup.
type CreatorPaywallInfo struct {
	ID                     uuid.UUID `json:"id"`
	Handle                 string    `json:"handle"`
	DisplayName            string    `json:"displayName"`
	SubscriptionPriceCents int64     `json:"subscriptionPriceCents"`
	TrialEnabled           bool      `json:"trialEnabled"`
}

// PaywallInfo projects a profile down to the fields denial verdicts carry.
func (p *CreatorProfile) PaywallInfo() *CreatorPaywallInfo {
	return &CreatorPaywallInfo{
		ID:                     p.ID,
		Handle:                 p.Handle,
		DisplayName:            p.DisplayName,
		SubscriptionPriceCents: p.SubscriptionPriceCents,
		TrialEnabled:           p.TrialEnabled,
	}
}
