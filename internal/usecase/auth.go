package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/metrics"
	"github.com/ErlanBelekov/sso-handoff/internal/redirect"
	"github.com/ErlanBelekov/sso-handoff/internal/repository"
	"github.com/ErlanBelekov/sso-handoff/internal/requestid"
	"github.com/ErlanBelekov/sso-handoff/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// LandingPath is where a login ends when there is no acceptable return URL.
const LandingPath = "/"

type TokenStore interface {
	Issue(subject string) string
	ValidateAndConsume(ctx context.Context, tok string) domain.Redemption
	Len() int
}

type RedirectGuard interface {
	IsAllowed(candidate string) bool
}

// dummyHash is compared against when the username is unknown so that both
// failure paths spend a bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

type AuthUsecase struct {
	users  repository.UserRepository
	tokens TokenStore
	guard  RedirectGuard
	audit  repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens TokenStore,
	guard RedirectGuard,
	audit repository.AuditRepository,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:  users,
		tokens: tokens,
		guard:  guard,
		audit:  audit,
		logger: logger.With("component", "auth"),
		now:    time.Now,
	}
}

// Authenticate checks a username/password pair against the directory.
// Unknown users and wrong passwords both yield domain.ErrInvalidCredentials.
func (u *AuthUsecase) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	user, err := u.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		u.loginFailed(ctx, username, "unknown user")
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		u.loginFailed(ctx, username, "bad password")
		return nil, domain.ErrInvalidCredentials
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	u.record(ctx, domain.EventLoginSucceeded, username, "")
	id := user.Identity
	return &id, nil
}

// HandoffDestination picks where the browser goes after subject has logged
// in. An empty or disallowed return URL falls back to LandingPath without
// issuing anything; an allowed one gets a fresh token appended.
func (u *AuthUsecase) HandoffDestination(ctx context.Context, subject, returnURL string) string {
	if returnURL == "" {
		return LandingPath
	}

	if !u.guard.IsAllowed(returnURL) {
		metrics.RedirectsRejectedTotal.Inc()
		u.logger.WarnContext(ctx, "redirect rejected", "return_url", returnURL)
		u.record(ctx, domain.EventRedirectRejected, subject, returnURL)
		return LandingPath
	}

	tok := u.tokens.Issue(subject)
	dest := withToken(returnURL, tok)

	metrics.TokensIssuedTotal.Inc()
	metrics.TokensLive.Set(float64(u.tokens.Len()))
	origin, _ := redirect.Origin(returnURL)
	u.logger.InfoContext(ctx, "token issued", "token_prefix", token.Prefix(tok), "origin", origin)
	u.record(ctx, domain.EventTokenIssued, subject, token.Prefix(tok))

	return dest
}

// withToken appends token=tok to the query of raw. Every other byte of raw
// is kept as written; an existing token parameter is dropped.
func withToken(raw, tok string) string {
	base, fragment, hasFragment := strings.Cut(raw, "#")
	path, query, _ := strings.Cut(base, "?")

	var kept []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil && k == "token" {
			continue
		}
		kept = append(kept, pair)
	}
	kept = append(kept, "token="+url.QueryEscape(tok))

	out := path + "?" + strings.Join(kept, "&")
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

// Redeem consumes tok and reports the outcome. A failure is a normal
// result, not an error.
func (u *AuthUsecase) Redeem(ctx context.Context, tok string) domain.Redemption {
	if tok == "" {
		metrics.RedemptionsTotal.WithLabelValues(string(domain.ReasonTokenNotFound)).Inc()
		u.record(ctx, domain.EventRedemptionRejected, "", string(domain.ReasonTokenNotFound))
		return domain.Rejected(domain.ReasonTokenNotFound)
	}

	res := u.tokens.ValidateAndConsume(ctx, tok)
	if !res.OK() {
		metrics.RedemptionsTotal.WithLabelValues(string(res.Reason)).Inc()
		u.logger.InfoContext(ctx, "redemption rejected", "token_prefix", token.Prefix(tok), "reason", res.Reason)
		u.record(ctx, domain.EventRedemptionRejected, "", string(res.Reason))
		return res
	}

	metrics.RedemptionsTotal.WithLabelValues("valid").Inc()
	u.logger.InfoContext(ctx, "token redeemed", "token_prefix", token.Prefix(tok), "subject", res.Identity.Username)
	u.record(ctx, domain.EventTokenRedeemed, res.Identity.Username, token.Prefix(tok))
	return res
}

func (u *AuthUsecase) loginFailed(ctx context.Context, username, detail string) {
	metrics.LoginsTotal.WithLabelValues("failure").Inc()
	u.logger.InfoContext(ctx, "login failed", "username", username, "detail", detail)
	u.record(ctx, domain.EventLoginFailed, username, detail)
}

// record writes an audit event. Failures are logged and swallowed.
func (u *AuthUsecase) record(ctx context.Context, typ domain.AuditEventType, subject, detail string) {
	e := &domain.AuditEvent{
		Type:       typ,
		Subject:    subject,
		Detail:     detail,
		RequestID:  requestid.FromContext(ctx),
		OccurredAt: u.now(),
	}
	if err := u.audit.Record(ctx, e); err != nil {
		u.logger.ErrorContext(ctx, "record audit event", "type", typ, "error", err)
	}
}
