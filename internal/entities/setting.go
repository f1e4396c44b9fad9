package entities

import (
	"time"
)

// Setting value types.
const (
	SettingTypeString  = "string"
	SettingTypeNumber  = "number"
	SettingTypeBoolean = "boolean"
)

// Known setting keys.
const (
	SettingKeyLoanDurationDays       = "loan_duration_days"
	SettingKeyMaxLoansPerPatron      = "max_loans_per_patron"
	SettingKeyOverdueReminderEnabled = "overdue_reminder_enabled"
	SettingKeyLibraryName            = "library_name"
	SettingKeyAdminEmail             = "admin_email"
	SettingKeyISBNAPIKey             = "isbn_api_key"
)

// Setting is a typed key/value configuration entry. The value is stored as
// text and coerced against Type when written.
type Setting struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"type" json:"type"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
