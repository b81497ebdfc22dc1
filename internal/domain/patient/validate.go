package patient

import (
	"regexp"

	"github.com/patreg/patreg/internal/apperr"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,20}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func validateFullName(name string) error {
	if n := len([]rune(name)); n < 2 || n > 150 {
		return apperr.New(apperr.InvalidPayload, "full_name must be between 2 and 150 characters.")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 320 || !emailPattern.MatchString(email) {
		return apperr.New(apperr.InvalidPayload, "email must be a valid email address.")
	}
	return nil
}

func validatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperr.New(apperr.InvalidPayload, "phone_number must be 7 to 20 digits with an optional leading +.")
	}
	return nil
}

// Validate checks every field of a create/replace payload.
func (p CreatePayload) Validate() error {
	if err := validateFullName(p.FullName); err != nil {
		return err
	}
	if err := validateEmail(p.Email); err != nil {
		return err
	}
	return validatePhone(p.PhoneNumber)
}

// Validate checks only the fields the patch actually sets.
func (p PatchPayload) Validate() error {
	if p.FullName != nil {
		if err := validateFullName(*p.FullName); err != nil {
			return err
		}
	}
	if p.Email != nil {
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.PhoneNumber != nil {
		if err := validatePhone(*p.PhoneNumber); err != nil {
			return err
		}
	}
	return nil
}
