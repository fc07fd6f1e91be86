// Package identity turns a caller-supplied identity into the scope of an
// attendance table. There is no authentication: any email that passes the
// format check is granted the scope derived from it.
package identity

import (
	"fmt"
	"strings"

	"github.com/attendance-tracker-api/internal/models"
)

// Resolver maps an identity string to a table scope
type Resolver interface {
	Resolve(identity string) (models.Scope, error)
}

// EmailResolver derives a file-safe scope from an email address
type EmailResolver struct{}

// NewEmailResolver creates an EmailResolver
func NewEmailResolver() *EmailResolver {
	return &EmailResolver{}
}

// Resolve lower-cases the email and replaces every character outside
// [a-z0-9] with an underscore. The only check is that it contains "@".
func (EmailResolver) Resolve(email string) (models.Scope, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: %q must contain @", models.ErrInvalidEmail, email)
	}

	var b strings.Builder
	b.Grow(len(email))
	for _, r := range strings.ToLower(email) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return models.Scope(b.String()), nil
}

// Static always resolves to the same scope. It backs the single-table mode.
type Static models.Scope

// Resolve ignores identity and returns the fixed scope
func (s Static) Resolve(string) (models.Scope, error) {
	return models.Scope(s), nil
}
