package registration

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// MinPasswordLength is the shortest password accepted at registration
var MinPasswordLength = 8

// DefaultPhoneRegion is used to parse numbers written without a country prefix
var DefaultPhoneRegion = "CH"

var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"sunshine":    {},
	"letmein1":    {},
	"abcdefgh":    {},
	"football":    {},
	"baseball":    {},
	"trustno1":    {},
}

// RegistrationPayload is the sign-up form
type RegistrationPayload struct {
	Email       string `form:"email" json:"email"`
	Username    string `form:"username" json:"username"`
	Password1   string `form:"password1" json:"password1"`
	Password2   string `form:"password2" json:"password2"`
	PhoneNumber string `form:"phone_number" json:"phone_number"`
}

// Normalize trims the payload and defaults the username to the email
func (r *RegistrationPayload) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.Username == "" {
		r.Username = r.Email
	}
}

// Validate will validate the payload
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(
			&r.Password1,
			validation.Required,
			validation.Length(MinPasswordLength, 128),
			validation.By(ValidateNotNumeric),
			validation.By(ValidateNotCommonPassword),
			validation.By(ValidateNotSimilar(r.Email, r.Username)),
		),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
		validation.Field(&r.PhoneNumber, validation.By(ValidatePhoneNumber(DefaultPhoneRegion))),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"username" json:"username"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return strings.TrimSpace(r.Identifier)
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the remember me flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required),
	)
}

var _ LoginPayload = LoginRequest{}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("the two password fields didn't match")
		}
		return nil
	}
}

// ValidateNotNumeric rejects passwords made only of digits
func ValidateNotNumeric(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return nil
		}
	}
	return errors.New("this password is entirely numeric")
}

// ValidateNotCommonPassword rejects a short list of well known passwords
func ValidateNotCommonPassword(value interface{}) error {
	s, _ := value.(string)
	if _, ok := commonPasswords[strings.ToLower(s)]; ok {
		return errors.New("this password is too common")
	}
	return nil
}

// ValidateNotSimilar rejects passwords equal to one of the given attributes,
// or to the local part of an email attribute.
func ValidateNotSimilar(attributes ...string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		for _, attr := range attributes {
			attr = strings.ToLower(strings.TrimSpace(attr))
			if attr == "" {
				continue
			}
			candidates := []string{attr}
			if local, _, ok := strings.Cut(attr, "@"); ok && local != "" {
				candidates = append(candidates, local)
			}
			for _, c := range candidates {
				if strings.EqualFold(s, c) {
					return errors.New("the password is too similar to the account details")
				}
			}
		}
		return nil
	}
}

// ValidatePhoneNumber accepts empty values and numbers valid for region
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhoneNumber(s, region); err != nil {
			return errors.New("enter a valid phone number")
		}
		return nil
	}
}

// NormalizePhoneNumber parses a phone number and formats it as E.164
func NormalizePhoneNumber(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatValidationErrorToMap flattens ozzo validation errors keyed by field
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr == nil {
				continue
			}
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}
