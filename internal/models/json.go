package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a wrapper around gorm.io/datatypes.JSON to allow for custom data type mapping
type JSON struct {
	datatypes.JSON
}

// NewJSON wraps raw JSON bytes. Empty input yields an empty value stored as NULL.
func NewJSON(raw []byte) JSON {
	if len(raw) == 0 {
		return JSON{}
	}
	return JSON{JSON: datatypes.JSON(raw)}
}

// IsEmpty reports whether no document is held
func (j JSON) IsEmpty() bool {
	return len(j.JSON) == 0
}

// Raw returns the document as json.RawMessage
func (j JSON) Raw() json.RawMessage {
	return json.RawMessage(j.JSON)
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method, mapping NULL to an empty value
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		j.JSON = nil
		return nil
	}
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
