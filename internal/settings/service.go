// Package settings is the typed key/value configuration store. Every key
// is declared up front with a type; values are coerced against that type
// once, at the write boundary, and stored as text.
package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/carrelhq/carrel/internal/apperr"
	"github.com/carrelhq/carrel/internal/entities"
	"github.com/carrelhq/carrel/internal/store"
)

// DefaultLoanDurationDays is the fallback when the loan duration setting is
// absent or unparseable.
const DefaultLoanDurationDays = 30

// defaults is the built-in value map used by Reset.
var defaults = map[string]string{
	entities.SettingKeyLoanDurationDays:       "30",
	entities.SettingKeyMaxLoansPerPatron:      "5",
	entities.SettingKeyOverdueReminderEnabled: "true",
	entities.SettingKeyLibraryName:            "Institutional Library",
	entities.SettingKeyAdminEmail:             "admin@library.local",
	entities.SettingKeyISBNAPIKey:             "",
}

// positiveKeys carry an additional greater-than-zero invariant.
var positiveKeys = map[string]bool{
	entities.SettingKeyLoanDurationDays:  true,
	entities.SettingKeyMaxLoansPerPatron: true,
}

// Service handles configuration reads and validated writes.
type Service struct {
	store *store.Store
}

// NewService creates a new settings service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Get retrieves a single setting by key.
func (s *Service) Get(key string) (*entities.Setting, error) {
	var setting entities.Setting
	found, err := s.store.QueryOne(&setting, `SELECT * FROM settings WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("setting")
	}
	return &setting, nil
}

// GetAll returns every declared setting ordered by key.
func (s *Service) GetAll() ([]entities.Setting, error) {
	settings := []entities.Setting{}
	err := s.store.QueryMany(&settings, `SELECT * FROM settings ORDER BY key`)
	return settings, err
}

// Set coerces value against the key's declared type and persists it. An
// undeclared key is not-found; a coercion failure or a non-positive value
// for a gated key is a validation failure. A nil description keeps the
// existing one.
func (s *Service) Set(key string, value any, description *string) error {
	existing, err := s.Get(key)
	if err != nil {
		return err
	}

	stored, err := coerce(key, existing.Type, value)
	if err != nil {
		return err
	}

	_, err = s.store.Execute(
		`UPDATE settings SET value = ?, description = COALESCE(?, description), updated_at = datetime('now') WHERE key = ?`,
		stored, description, key)
	return err
}

// SetMany validates the entire map before writing any entry; a single
// invalid entry rejects the whole batch, reporting every problem found.
// Accepted writes are then applied as independent statements.
func (s *Service) SetMany(values map[string]any) error {
	type update struct {
		key, value string
	}
	updates := make([]update, 0, len(values))
	var problems []string

	// Deterministic order keeps error reports stable.
	for _, key := range sortedKeys(values) {
		existing, err := s.Get(key)
		if err != nil {
			if apperr.IsNotFound(err) {
				problems = append(problems, fmt.Sprintf("setting %s does not exist", key))
				continue
			}
			return err
		}
		stored, err := coerce(key, existing.Type, values[key])
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		updates = append(updates, update{key: key, value: stored})
	}

	if len(problems) > 0 {
		return &apperr.ValidationError{Message: "settings validation failed", Details: problems}
	}

	for _, u := range updates {
		_, err := s.store.Execute(
			`UPDATE settings SET value = ?, updated_at = datetime('now') WHERE key = ?`,
			u.value, u.key)
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset restores the built-in defaults for the given keys, or for every
// known key when keys is empty. It returns the number of settings reset.
func (s *Service) Reset(keys []string) (int, error) {
	if len(keys) == 0 {
		for key := range defaults {
			keys = append(keys, key)
		}
	}

	count := 0
	for _, key := range keys {
		value, known := defaults[key]
		if !known {
			continue
		}
		res, err := s.store.Execute(
			`UPDATE settings SET value = ?, updated_at = datetime('now') WHERE key = ?`,
			value, key)
		if err != nil {
			return count, err
		}
		if res.RowsAffected > 0 {
			count++
		}
	}
	return count, nil
}

// LoanDurationDays returns the configured default loan duration, falling
// back to DefaultLoanDurationDays when the setting is missing or does not
// parse as a positive integer.
func (s *Service) LoanDurationDays() int {
	var value string
	found, err := s.store.QueryOne(&value, `SELECT value FROM settings WHERE key = ?`, entities.SettingKeyLoanDurationDays)
	if err != nil || !found {
		return DefaultLoanDurationDays
	}
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || days <= 0 {
		return DefaultLoanDurationDays
	}
	return days
}

// SystemInfo aggregates catalog-wide counters for the admin surface. The
// version is filled in by the HTTP layer.
type SystemInfo struct {
	Version         string `json:"version,omitempty"`
	TotalBooks      int64  `json:"total_books"`
	AvailableBooks  int64  `json:"available_books"`
	BorrowedBooks   int64  `json:"borrowed_books"`
	TotalLoans      int64  `json:"total_loans"`
	ActiveLoans     int64  `json:"active_loans"`
	OverdueLoans    int64  `json:"overdue_loans"`
	TotalCategories int64  `json:"total_categories"`
}

// SystemInfo returns the current counters.
func (s *Service) SystemInfo() (*SystemInfo, error) {
	info := &SystemInfo{}
	counters := []struct {
		dest  *int64
		query string
	}{
		{&info.TotalBooks, `SELECT COUNT(*) FROM books`},
		{&info.AvailableBooks, `SELECT COUNT(*) FROM books WHERE status = 'available'`},
		{&info.BorrowedBooks, `SELECT COUNT(*) FROM books WHERE status = 'borrowed'`},
		{&info.TotalLoans, `SELECT COUNT(*) FROM loans`},
		{&info.ActiveLoans, `SELECT COUNT(*) FROM loans WHERE status = 'borrowed'`},
		{&info.OverdueLoans, `SELECT COUNT(*) FROM loans WHERE status = 'borrowed' AND due_date < date('now')`},
		{&info.TotalCategories, `SELECT COUNT(*) FROM categories`},
	}
	for _, c := range counters {
		if _, err := s.store.QueryOne(c.dest, c.query); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// coerce validates value against the declared type and returns its stored
// text form.
func coerce(key, declaredType string, value any) (string, error) {
	switch declaredType {
	case entities.SettingTypeNumber:
		num, err := toNumber(value)
		if err != nil {
			return "", apperr.Validation("value for %s must be a number", key)
		}
		if positiveKeys[key] && num <= 0 {
			return "", apperr.Validation("value for %s must be greater than zero", key)
		}
		return strconv.FormatFloat(num, 'f', -1, 64), nil

	case entities.SettingTypeBoolean:
		switch v := value.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			return strconv.FormatBool(strings.EqualFold(strings.TrimSpace(v), "true")), nil
		case nil:
			return "false", nil
		default:
			// Numeric zero is false, any other number is true.
			if num, err := toNumber(value); err == nil {
				return strconv.FormatBool(num != 0), nil
			}
			return strconv.FormatBool(true), nil
		}

	default:
		if value == nil {
			return "", nil
		}
		return fmt.Sprintf("%v", value), nil
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("not a number")
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
