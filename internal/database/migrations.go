package database

import (
	"fmt"
	"log"
	"time"

	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
)

// Migration is one schema version. Up must be idempotent so that databases created by
// earlier builds, which patched their schema on boot, converge on the same layout.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// Migrations is the ordered schema history
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create users, bots, conversations, messages",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &models.User{}, &models.Bot{}, &models.Conversation{}, &models.Message{})
		},
	},
	{
		Version: 2,
		Name:    "create user_bots",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &models.UserBot{})
		},
	},
	{
		Version: 3,
		Name:    "create activation_keys",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &models.ActivationKey{})
		},
	},
	{
		Version: 4,
		Name:    "add users.external_ref",
		Up: func(tx *gorm.DB) error {
			return addColumn(tx, &models.User{}, "ExternalRef")
		},
	},
	{
		Version: 5,
		Name:    "add conversations.status",
		Up: func(tx *gorm.DB) error {
			return addColumn(tx, &models.Conversation{}, "Status")
		},
	},
	{
		Version: 6,
		Name:    "add messages.context",
		Up: func(tx *gorm.DB) error {
			return addColumn(tx, &models.Message{}, "Context")
		},
	},
	{
		Version: 7,
		Name:    "create user_bot_preferences",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &models.UserBotPreference{})
		},
	},
	{
		Version: 8,
		Name:    "index messages and conversations by scope",
		Up: func(tx *gorm.DB) error {
			if err := createIndex(tx, &models.Message{}, "idx_messages_scope"); err != nil {
				return err
			}
			return createIndex(tx, &models.Conversation{}, "idx_conversations_scope")
		},
	},
	{
		Version: 9,
		Name:    "add messages.search_text",
		Up: func(tx *gorm.DB) error {
			if err := addColumn(tx, &models.Message{}, "SearchText"); err != nil {
				return err
			}
			return backfillSearchText(tx)
		},
	},
}

// Migrate applies every migration newer than the recorded schema version, in order,
// recording each one as it completes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}

		log.Printf("Applied migration %d: %s", m.Version, m.Name)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 for a new database
func SchemaVersion(db *gorm.DB) (int, error) {
	var version int
	err := db.Model(&models.SchemaMigration{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func createTables(tx *gorm.DB, dst ...interface{}) error {
	migrator := tx.Migrator()
	for _, model := range dst {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return err
		}
	}
	return nil
}

func addColumn(tx *gorm.DB, model interface{}, field string) error {
	migrator := tx.Migrator()
	if migrator.HasColumn(model, field) {
		return nil
	}
	return migrator.AddColumn(model, field)
}

// backfillSearchText folds the text of rows written before search_text existed
func backfillSearchText(tx *gorm.DB) error {
	var batch []models.Message
	return tx.Select("id", "text").
		Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 500, func(btx *gorm.DB, _ int) error {
			for _, m := range batch {
				err := tx.Model(&models.Message{}).
					Where("id = ?", m.ID).
					UpdateColumn("search_text", models.FoldText(m.Text)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func createIndex(tx *gorm.DB, model interface{}, name string) error {
	migrator := tx.Migrator()
	if migrator.HasIndex(model, name) {
		return nil
	}
	return migrator.CreateIndex(model, name)
}
