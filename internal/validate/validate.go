package validate

import (
	"mime/multipart"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"marketadmin/internal/domain"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	rePhone = regexp.MustCompile(`^\+?[0-9 ()-]{3,32}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

const (
	MaxString      = 255
	MinPassword    = 8
	MaxPassword    = 72 // bcrypt ignores anything past 72 bytes
	MaxImageBytes  = 2 << 20
	imageMIMEGroup = "image/"
)

var imageExts = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".svg": true}

// Errors collects field failures, keyed by input name.
type Errors map[string][]string

func (e Errors) Add(field, msg string) { e[field] = append(e[field], msg) }

func (e Errors) Empty() bool { return len(e) == 0 }

// Err returns nil when no failure was recorded so callers can write
// `return v.Err()`.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error returns the first message of the alphabetically first field.
func (e Errors) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e[keys[0]][0]
}

func label(field string) string { return strings.ReplaceAll(field, "_", " ") }

// Required trims s and records a failure when it is empty or too long.
func (e Errors) Required(field, s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		e.Add(field, "The "+label(field)+" field is required.")
		return s
	}
	if utf8.RuneCountInString(s) > max {
		e.Add(field, "The "+label(field)+" field is too long.")
	}
	return s
}

func (e Errors) Taken(field string) {
	e.Add(field, "The "+label(field)+" has already been taken.")
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > MaxString {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}

// Password enforces the length window used when registering accounts.
func Password(s string) bool {
	return len(s) >= MinPassword && len(s) <= MaxPassword
}

// ID validates a simple resource identifier.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// CategoryType parses an optional category type. Empty input yields the
// default type.
func CategoryType(s string) (domain.CategoryType, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.CategoryNormal, true
	}
	t := domain.CategoryType(s)
	return t, t.Valid()
}

// Image checks an uploaded file against the accepted image types and size.
func Image(fh *multipart.FileHeader) bool {
	if fh == nil || fh.Size <= 0 || fh.Size > MaxImageBytes {
		return false
	}
	if !imageExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		return false
	}
	switch ct := fh.Header.Get("Content-Type"); {
	case ct == "", ct == "application/octet-stream":
		return true
	default:
		return strings.HasPrefix(ct, imageMIMEGroup)
	}
}
