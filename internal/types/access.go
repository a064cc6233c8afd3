package types

// AccessReason is the closed set of verdict reason codes. Callers switch
// on the code; user-facing text comes from Message, never from the code
// itself.
type AccessReason string

const (
	ReasonFreeContent          AccessReason = "free_content"
	ReasonActiveSubscription   AccessReason = "active_subscription"
	ReasonTrialing             AccessReason = "trialing"
	ReasonCreatorOwnContent    AccessReason = "creator_own_content"
	ReasonNoSubscription       AccessReason = "no_subscription"
	ReasonSubscriptionExpired  AccessReason = "subscription_expired"
	ReasonSubscriptionCanceled AccessReason = "subscription_canceled"
	ReasonSubscriptionPastDue  AccessReason = "subscription_past_due"
	ReasonContentNotFound      AccessReason = "content_not_found"
	ReasonUserNotFound         AccessReason = "user_not_found"
	ReasonUnauthenticated      AccessReason = "unauthenticated"
)

var reasonMessages = map[AccessReason]string{
	ReasonFreeContent:          "This content is free to watch.",
	ReasonActiveSubscription:   "You have an active subscription.",
	ReasonTrialing:             "You are on a free trial.",
	ReasonCreatorOwnContent:    "This is your own content.",
	ReasonNoSubscription:       "Subscribe to watch this creator's content.",
	ReasonSubscriptionExpired:  "Your subscription has expired. Subscribe again to keep watching.",
	ReasonSubscriptionCanceled: "Your subscription was canceled. Subscribe again to keep watching.",
	ReasonSubscriptionPastDue:  "Your payment is past due. Update your payment method to keep watching.",
	ReasonContentNotFound:      "This content is no longer available.",
	ReasonUserNotFound:         "Account not found.",
	ReasonUnauthenticated:      "Sign in to watch this content.",
}

// Message returns the user-facing message for a reason code.
func (r AccessReason) Message() string {
	return reasonMessages[r]
}

// Denies reports whether the reason is a denial (as opposed to a grant).
func (r AccessReason) Denies() bool {
	switch r {
	case ReasonFreeContent, ReasonActiveSubscription, ReasonTrialing, ReasonCreatorOwnContent:
		return false
	default:
		return true
	}
}

// AccessVerdict is the engine's answer for one (user, content) pair.
// Subscription is set only on subscription-based grants; Creator is set
// only on denials, for paywall rendering.
type AccessVerdict struct {
	HasAccess     bool                `json:"hasAccess"`
	Reason        AccessReason        `json:"reason"`
	IsFreeContent bool                `json:"isFreeContent"`
	Subscription  *SubscriptionGrant  `json:"subscription,omitempty"`
	Creator       *CreatorPaywallInfo `json:"creator,omitempty"`
}

// RevalidationResult is the mid-playback re-check answer. ExpiresIn and
// NextCheckIn are seconds; both are zero when Valid is false, telling the
// player to stop polling and show the paywall.
type RevalidationResult struct {
	Valid       bool         `json:"valid"`
	Reason      AccessReason `json:"reason"`
	ExpiresIn   int64        `json:"expiresIn"`
	NextCheckIn int64        `json:"nextCheckIn"`
}
