package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/localnerve/botdesk/internal/metrics"
	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxKeysPerBatch bounds a single IssueKeys call
const MaxKeysPerBatch = 1000

// ReasonAlreadyActivated is reported when a redemption finds the bot already unlocked
const ReasonAlreadyActivated = "already activated"

// Activation is the outcome of a key redemption that did not fail
type Activation struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

// EntitlementService tracks unlocked bots and redeems activation keys
type EntitlementService struct {
	DB *gorm.DB

	// NewKey generates key tokens; nil uses shortuuid
	NewKey func() string
}

// NewEntitlementService creates an EntitlementService
func NewEntitlementService(db *gorm.DB) *EntitlementService {
	return &EntitlementService{DB: db}
}

// IsActivated reports whether the user has unlocked the bot
func (s *EntitlementService) IsActivated(ctx context.Context, userID string, botID uint64) (bool, error) {
	return isActivated(s.DB.WithContext(ctx), userID, botID)
}

func isActivated(db *gorm.DB, userID string, botID uint64) (bool, error) {
	var count int64
	err := db.Model(&models.UserBot{}).
		Where("user_id = ? AND bot_id = ?", userID, botID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to read entitlement: %w", err)
	}
	return count > 0, nil
}

// Activate redeems key for the user against botID. The key is consumed and the
// entitlement granted in one transaction; the conditional update on used = false makes
// concurrent redemptions of the same key resolve to exactly one winner.
func (s *EntitlementService) Activate(ctx context.Context, userID string, botID uint64, key string) (Activation, error) {
	if userID == "" || botID == 0 || key == "" {
		return Activation{}, ErrInvalidInput
	}

	var result Activation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ak models.ActivationKey
		if err := tx.Where(keyEquals(key)).First(&ak).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidKey
			}
			return fmt.Errorf("failed to read activation key: %w", err)
		}

		activated, err := isActivated(tx, userID, botID)
		if err != nil {
			return err
		}

		if ak.Used {
			// Replaying your own key is a no-op rather than a failure
			if activated && ak.BotID == botID && ak.UsedBy != nil && *ak.UsedBy == userID {
				result = Activation{Granted: false, Reason: ReasonAlreadyActivated}
				return nil
			}
			return ErrKeyAlreadyUsed
		}

		if ak.BotID != botID {
			return ErrKeyBotMismatch
		}

		now := time.Now().UTC()
		res := tx.Model(&models.ActivationKey{}).
			Where("id = ? AND used = ?", ak.ID, false).
			Updates(map[string]interface{}{
				"used":    true,
				"used_by": userID,
				"used_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to consume activation key: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrKeyAlreadyUsed
		}

		if activated {
			result = Activation{Granted: false, Reason: ReasonAlreadyActivated}
			return nil
		}

		err = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserBot{UserID: userID, BotID: botID, CreatedAt: now}).Error
		if err != nil {
			return fmt.Errorf("failed to grant entitlement: %w", err)
		}

		result = Activation{Granted: true}
		return nil
	})

	metrics.ObserveActivation(result.Granted, err)
	if err != nil {
		return Activation{}, err
	}
	return result, nil
}

// IssueKeys creates count unused keys bound to botID. The batch is all-or-nothing: a
// token collision fails the call with ErrKeyCollision instead of overwriting.
func (s *EntitlementService) IssueKeys(ctx context.Context, botID uint64, count int) ([]string, error) {
	if botID == 0 || count < 1 || count > MaxKeysPerBatch {
		return nil, ErrInvalidInput
	}

	newKey := s.NewKey
	if newKey == nil {
		newKey = shortuuid.New
	}

	keys := make([]models.ActivationKey, count)
	tokens := make([]string, count)
	now := time.Now().UTC()
	for i := range keys {
		tokens[i] = newKey()
		keys[i] = models.ActivationKey{Key: tokens[i], BotID: botID, CreatedAt: now}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := botExists(tx, botID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).CreateInBatches(&keys, 100).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrKeyCollision
			}
			return fmt.Errorf("failed to store activation keys: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.KeysIssued.Add(float64(count))
	return tokens, nil
}

// GetKey returns the stored state of one key
func (s *EntitlementService) GetKey(ctx context.Context, key string) (*models.ActivationKey, error) {
	var ak models.ActivationKey
	if err := s.DB.WithContext(ctx).Where(keyEquals(key)).First(&ak).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read activation key: %w", err)
	}
	return &ak, nil
}

// keyEquals matches the key column, quoted per dialect since KEY is reserved in MySQL
func keyEquals(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func botExists(db *gorm.DB, botID uint64) error {
	var count int64
	if err := db.Model(&models.Bot{}).Where("id = ?", botID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read bot: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
