package services

import (
	"context"
	"strings"
)

// DefaultMessageLimit is the per (user, bot) cap for users without an entitlement
const DefaultMessageLimit = 100

// Quota is the result of a limit check. Remaining is nil when sending is unlimited.
type Quota struct {
	CanSend   bool `json:"canSend"`
	Unlimited bool `json:"unlimited"`
	Remaining *int `json:"remaining"`
}

// QuotaService decides whether a user may send another message to a bot. The result
// is advisory; nothing in the stores enforces it.
type QuotaService struct {
	Entitlements *EntitlementService
	Messages     *MessageService
	AdminEmail   string
	Limit        int
}

// NewQuotaService creates a QuotaService. A non-positive limit uses
// DefaultMessageLimit.
func NewQuotaService(entitlements *EntitlementService, messages *MessageService, adminEmail string, limit int) *QuotaService {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &QuotaService{
		Entitlements: entitlements,
		Messages:     messages,
		AdminEmail:   adminEmail,
		Limit:        limit,
	}
}

// CheckLimit applies, in order: the administrator is unlimited, an activated user is
// unlimited, anyone else may send while their user-sent message count for the bot is
// below the limit.
func (s *QuotaService) CheckLimit(ctx context.Context, userID string, botID uint64, email string) (Quota, error) {
	if s.isAdmin(email) {
		return Quota{CanSend: true, Unlimited: true}, nil
	}

	activated, err := s.Entitlements.IsActivated(ctx, userID, botID)
	if err != nil {
		return Quota{}, err
	}
	if activated {
		return Quota{CanSend: true, Unlimited: true}, nil
	}

	count, err := s.Messages.CountUserMessages(ctx, userID, botID)
	if err != nil {
		return Quota{}, err
	}

	remaining := s.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Quota{CanSend: count < int64(s.Limit), Remaining: &remaining}, nil
}

func (s *QuotaService) isAdmin(email string) bool {
	return s.AdminEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.AdminEmail)
}
