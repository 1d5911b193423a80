package domain

import "time"

type AuditEventType string

const (
	EventLoginSucceeded     AuditEventType = "login_succeeded"
	EventLoginFailed        AuditEventType = "login_failed"
	EventTokenIssued        AuditEventType = "token_issued"
	EventRedirectRejected   AuditEventType = "redirect_rejected"
	EventTokenRedeemed      AuditEventType = "token_redeemed"
	EventRedemptionRejected AuditEventType = "redemption_rejected"
)

type AuditEvent struct {
	ID         string
	Type       AuditEventType
	Subject    string
	Detail     string // failure reason, rejected redirect origin, ...
	RequestID  string
	OccurredAt time.Time
}
