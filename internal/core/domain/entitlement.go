package domain

import "time"

// Entitlement is the stored premium record of a user. A nil ExpireAt means the
// user holds no entitlement.
type Entitlement struct {
	UserID   UserID
	ExpireAt *time.Time
}

func (e *Entitlement) HasExpiry() bool {
	return e != nil && e.ExpireAt != nil && !e.ExpireAt.IsZero()
}

// ExpiredAt reports whether the entitlement is no longer valid at now.
// An expiry equal to now counts as expired.
func (e *Entitlement) ExpiredAt(now time.Time) bool {
	if !e.HasExpiry() {
		return true
	}
	return !e.ExpireAt.After(now)
}

// Grant is the result of granting or extending an entitlement.
type Grant struct {
	UserID    UserID
	Duration  DurationExpression
	GrantedAt time.Time
	ExpireAt  time.Time
}

// Transfer is the result of moving an entitlement between users.
type Transfer struct {
	From          UserID
	To            UserID
	ExpireAt      time.Time
	TransferredAt time.Time
}

// Status answers whether a user is entitled right now and for how long.
type Status struct {
	UserID    UserID
	Active    bool
	ExpireAt  time.Time
	Remaining time.Duration
}
