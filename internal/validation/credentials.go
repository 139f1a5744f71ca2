// Package validation holds the input rules shared by the services, the seeder and the
// admin tools.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	minUsernameLen = 3
	maxUsernameLen = 30
	maxEmailLen    = 254
)

// Usernames that would shadow a profile route or impersonate staff.
var reservedUsernames = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"me":         {},
	"moderator":  {},
	"shutterhub": {},
	"support":    {},
	"system":     {},
}

// ValidatePassword requires 12 to 128 bytes with upper, lower, digit and symbol.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a symbol such as !@#$%")
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must contain %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateCredentials runs the signup rules together. A password that embeds the
// username or the mailbox name is rejected.
func ValidateCredentials(username, email, password string) error {
	errs := []error{ValidateUsername(username), ValidateEmail(email), ValidatePassword(password)}

	lowered := strings.ToLower(password)
	if len(username) >= minUsernameLen && strings.Contains(lowered, strings.ToLower(username)) {
		errs = append(errs, errors.New("password must not contain the username"))
	}
	if local, _, ok := strings.Cut(email, "@"); ok && len(local) >= 4 && strings.Contains(lowered, strings.ToLower(local)) {
		errs = append(errs, errors.New("password must not contain the email address"))
	}
	return errors.Join(errs...)
}

// ValidateUsername allows 3 to 30 ASCII letters, digits, underscores and hyphens,
// not starting or ending with punctuation.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", minUsernameLen)
	}
	if len(username) > maxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLen)
	}
	for _, r := range username {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
		}
	}
	if strings.ContainsAny(username[:1], "_-") || strings.ContainsAny(username[len(username)-1:], "_-") {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		return fmt.Errorf("username %q is reserved", username)
	}
	return nil
}

// ValidateEmail accepts a bare address with a dotted domain.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLen)
	}
	_, domain, _ := strings.Cut(email, "@")
	if instance().Var(email, "required,email") != nil || !strings.Contains(domain, ".") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
