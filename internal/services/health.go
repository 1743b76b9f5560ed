package services

import (
	"fmt"
	"log"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status        string            `json:"status"`
	Database      string            `json:"database"`
	SchemaVersion int               `json:"schemaVersion"`
	Authorizer    string            `json:"authorizer"`
	Details       map[string]string `json:"details,omitempty"`
	ErrorMessage  string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, message string) {
	r.Status = "unhealthy"
	if r.ErrorMessage == "" {
		r.ErrorMessage = message
	} else {
		r.ErrorMessage += "; " + message
	}
	log.Printf("Health check failed - %s: %s", component, message)
}

// HealthCheck checks database reachability, that migrations are current, and, when
// configured, that Authorizer is reachable
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.fail("database connection", fmt.Sprintf("Database connection error: %v", err))
	} else if err := sqlDB.Ping(); err != nil {
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		result.fail("database ping", fmt.Sprintf("Database ping failed: %v", err))
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase

		version, err := database.SchemaVersion(db)
		latest := database.Migrations[len(database.Migrations)-1].Version
		switch {
		case err != nil:
			result.Database = "error"
			result.fail("schema version", err.Error())
		case version < latest:
			result.Database = "outdated"
			result.fail("schema version", fmt.Sprintf("schema version %d behind %d", version, latest))
		}
		result.SchemaVersion = version
	}

	if cfg.AuthzURL == "" {
		result.Authorizer = "not configured"
	} else if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.Details["authorizer_error"] = err.Error()
		result.fail("authorizer ping", fmt.Sprintf("Authorizer ping failed: %v", err))
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
