package domain

import "time"

// FailureReason is the business-level reason a redemption was refused.
type FailureReason string

const (
	ReasonTokenNotFound    FailureReason = "TOKEN_NOT_FOUND"
	ReasonTokenExpired     FailureReason = "TOKEN_EXPIRED"
	ReasonTokenAlreadyUsed FailureReason = "TOKEN_ALREADY_USED"
	ReasonUserNotFound     FailureReason = "USER_NOT_FOUND"
)

// TokenRecord is a snapshot of a handoff token. The store owns the live
// record; Consumed only ever moves from false to true.
type TokenRecord struct {
	Token     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Redemption is the outcome of redeeming a token: exactly one of Identity
// (success) or Reason (failure) is set.
type Redemption struct {
	Identity *Identity
	Reason   FailureReason
}

func Redeemed(id Identity) Redemption {
	return Redemption{Identity: &id}
}

func Rejected(reason FailureReason) Redemption {
	return Redemption{Reason: reason}
}

func (r Redemption) OK() bool {
	return r.Identity != nil
}
