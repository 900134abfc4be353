// Package validate collects per-field input errors.
package validate

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Errors maps a field name to its messages. A nil or empty Errors means valid input.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge copies other's messages under prefix.field ("" keeps the names).
func (e Errors) Merge(prefix string, other Errors) {
	for f, msgs := range other {
		name := f
		if prefix != "" {
			name = prefix + "." + f
		}

		e[name] = append(e[name], msgs...)
	}
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	var sb strings.Builder

	for i, f := range fields {
		if i > 0 {
			sb.WriteString("; ")
		}

		sb.WriteString(f + ": " + strings.Join(e[f], ", "))
	}

	return sb.String()
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}

	return e
}

// Text records required/max-length violations for a string field.
func (e Errors) Text(field, value string, required bool, maxLen int) {
	if required && strings.TrimSpace(value) == "" {
		e.Add(field, "This field may not be blank.")

		return
	}

	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		e.Add(field, "Ensure this field has no more than "+strconv.Itoa(maxLen)+" characters.")
	}
}

func (e Errors) Missing(field string) {
	e.Add(field, "This field is required.")
}
