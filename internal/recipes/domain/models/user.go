package models

import "strings"

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`   //nolint:tagliatelle
	IsStaff      bool   `json:"is_staff"`    //nolint:tagliatelle
	IsSuperuser  bool   `json:"is_superuser"` //nolint:tagliatelle
}

// NormalizeEmail trims the address and lower-cases its domain part.
// The local part is left as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
