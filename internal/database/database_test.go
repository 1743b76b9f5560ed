package database

import (
	"path/filepath"
	"testing"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T, dbType, path string) *gorm.DB {
	t.Helper()

	db, err := Connect(&config.Config{DBType: dbType, DBDatabase: path, DBLogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestMigrate(t *testing.T) {
	db := openSQLite(t, "sqlite", ":memory:")

	version, err := SchemaVersion(db)
	require.Error(t, err, "no schema_migrations table before the first run")
	assert.Zero(t, version)

	require.NoError(t, Migrate(db))
	version, err = SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, Migrations[len(Migrations)-1].Version, version)

	// Second run is a no-op
	require.NoError(t, Migrate(db))
	var applied int64
	require.NoError(t, db.Model(&models.SchemaMigration{}).Count(&applied).Error)
	assert.EqualValues(t, len(Migrations), applied)

	migrator := db.Migrator()
	for _, model := range []interface{}{
		&models.User{}, &models.Bot{}, &models.Conversation{}, &models.Message{},
		&models.UserBot{}, &models.ActivationKey{}, &models.UserBotPreference{},
	} {
		assert.True(t, migrator.HasTable(model), "%T table", model)
	}
	assert.True(t, migrator.HasColumn(&models.User{}, "ExternalRef"))
	assert.True(t, migrator.HasColumn(&models.Conversation{}, "Status"))
	assert.True(t, migrator.HasColumn(&models.Message{}, "Context"))
	assert.True(t, migrator.HasColumn(&models.Message{}, "SearchText"))
	assert.True(t, migrator.HasIndex(&models.Message{}, "idx_messages_scope"))
}

func TestMigrationVersionsAscend(t *testing.T) {
	for i := 1; i < len(Migrations); i++ {
		assert.Greater(t, Migrations[i].Version, Migrations[i-1].Version)
	}
}

func TestSchemaConstraints(t *testing.T) {
	db := openSQLite(t, "sqlite", ":memory:")
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{ID: "u1"}).Error)
	bot := models.Bot{Name: "b"}
	require.NoError(t, db.Create(&bot).Error)
	conv := models.Conversation{UserID: "u1", BotID: bot.ID, Title: "t"}
	require.NoError(t, db.Omit("User", "Bot").Create(&conv).Error)

	bad := models.Message{UserID: "u1", BotID: bot.ID, ConversationID: conv.ID, Sender: "system", Text: "x"}
	assert.Error(t, db.Omit("Conversation", "User", "Bot").Create(&bad).Error, "sender check constraint")

	orphan := models.Message{UserID: "u1", BotID: bot.ID, ConversationID: conv.ID + 99, Sender: models.SenderUser, Text: "x"}
	assert.Error(t, db.Omit("Conversation", "User", "Bot").Create(&orphan).Error, "foreign key to conversations")

	msg := models.Message{UserID: "u1", BotID: bot.ID, ConversationID: conv.ID, Sender: models.SenderUser, Text: "x"}
	require.NoError(t, db.Omit("Conversation", "User", "Bot").Create(&msg).Error)

	// Cascade removes the conversation's messages
	require.NoError(t, db.Delete(&models.Conversation{}, conv.ID).Error)
	var left int64
	require.NoError(t, db.Model(&models.Message{}).Count(&left).Error)
	assert.Zero(t, left)
}

func TestBackfillSearchText(t *testing.T) {
	db := openSQLite(t, "sqlite", ":memory:")
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{ID: "u1"}).Error)
	bot := models.Bot{Name: "b"}
	require.NoError(t, db.Create(&bot).Error)
	conv := models.Conversation{UserID: "u1", BotID: bot.ID, Title: "t"}
	require.NoError(t, db.Omit("User", "Bot").Create(&conv).Error)

	msg := models.Message{UserID: "u1", BotID: bot.ID, ConversationID: conv.ID, Sender: models.SenderUser, Text: "ÉCOLE Straße"}
	require.NoError(t, db.Omit("Conversation", "User", "Bot").Create(&msg).Error)

	var folded string
	require.NoError(t, db.Model(&models.Message{}).Select("search_text").Where("id = ?", msg.ID).Scan(&folded).Error)
	assert.Equal(t, "école strasse", folded, "set on save")

	// Rows written before the column existed
	require.NoError(t, db.Model(&models.Message{}).Where("id = ?", msg.ID).UpdateColumn("search_text", "").Error)
	require.NoError(t, db.Transaction(backfillSearchText))

	require.NoError(t, db.Model(&models.Message{}).Select("search_text").Where("id = ?", msg.ID).Scan(&folded).Error)
	assert.Equal(t, "école strasse", folded)
}

func TestConnect_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botdesk.db")

	db := openSQLite(t, "sqlite", path)
	require.NoError(t, Migrate(db))

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
	assert.True(t, IsSQLite(&config.Config{DBType: "sqlite3"}))
	assert.False(t, IsSQLite(&config.Config{DBType: "postgres"}))
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(&config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, LogLevel("SILENT"))
	assert.Equal(t, logger.Info, LogLevel("info"))
	assert.Equal(t, logger.Warn, LogLevel(""))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:", "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"))
	assert.Equal(t, "file.db?cache=shared&a=1&b=2", sqliteDSN("file.db?cache=shared", "a=1&b=2"))
}
