package registration

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUserPending          = "USER_PENDING"
	textCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	textCodeTooManyAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	textCodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	textCodeDuplicateAccount     = "DUPLICATE_ACCOUNT"
	textCodeActivationKeyInvalid = "ACTIVATION_KEY_INVALID"
	textCodeActivationKeyExpired = "ACTIVATION_KEY_EXPIRED"
	textCodeAlreadyActivated     = "ACCOUNT_ALREADY_ACTIVATED"
	textCodeRegistrationClosed   = "REGISTRATION_CLOSED"
	textCodeTokenExpired         = "TOKEN_EXPIRED"
	textCodeTokenMalformed       = "TOKEN_MALFORMED"
	textCodeEmptyPassword        = "EMPTY_PASSWORD"
	textCodeUnknownStatus        = "UNKNOWN_USER_STATUS"
	textCodeRouteNotFound        = "ROUTE_NOT_FOUND"
	textCodeRouteParamMissing    = "ROUTE_PARAM_MISSING"
)

// ErrUserPending is returned when an account has not been activated yet
var ErrUserPending = goerrors.New("this account is inactive", goerrors.CategoryAuth).
	WithTextCode(textCodeUserPending).
	WithCode(http.StatusForbidden)

// ErrMismatchedHashAndPassword is returned for wrong credentials and unknown identifiers alike
var ErrMismatchedHashAndPassword = goerrors.New("invalid identifier or password", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while the account is cooling down
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(textCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrRouteNotFound is returned when reversing a name the RouteTable lacks
var ErrRouteNotFound = goerrors.New("route is not registered", goerrors.CategoryNotFound).
	WithTextCode(textCodeRouteNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRouteParamMissing is returned when a path parameter has no value
var ErrRouteParamMissing = goerrors.New("route parameter is missing", goerrors.CategoryBadInput).
	WithTextCode(textCodeRouteParamMissing).
	WithCode(goerrors.CodeBadRequest)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateAccount is returned when the email or username is already registered
var ErrDuplicateAccount = goerrors.New("a user with that email already exists", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrActivationKeyInvalid is returned for keys that do not match any account
var ErrActivationKeyInvalid = goerrors.New("the activation key you provided is invalid", goerrors.CategoryBadInput).
	WithTextCode(textCodeActivationKeyInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrActivationKeyExpired is returned for keys older than the activation window
var ErrActivationKeyExpired = goerrors.New("this account has expired", goerrors.CategoryBadInput).
	WithTextCode(textCodeActivationKeyExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrAlreadyActivated is returned when a key is used a second time
var ErrAlreadyActivated = goerrors.New("the account you tried to activate has already been activated", goerrors.CategoryConflict).
	WithTextCode(textCodeAlreadyActivated).
	WithCode(goerrors.CodeConflict)

// ErrRegistrationClosed is returned when sign-up is disabled by configuration
var ErrRegistrationClosed = goerrors.New("registration is closed", goerrors.CategoryAuthz).
	WithTextCode(textCodeRegistrationClosed).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned for session tokens past their expiration
var ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for session tokens that cannot be parsed
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(textCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUnknownUserStatus is returned for records carrying a status we do not handle
var ErrUnknownUserStatus = goerrors.New("user has an unknown status", goerrors.CategoryAuth).
	WithTextCode(textCodeUnknownStatus).
	WithCode(goerrors.CodeForbidden)

// IsError reports whether err is target or carries the text code of target.
// Wrapped and annotated copies of a sentinel keep its text code.
func IsError(err error, target *goerrors.Error) bool {
	if err == nil || target == nil {
		return false
	}
	if goerrors.Is(err, target) {
		return true
	}
	return target.TextCode != "" && TextCode(err) == target.TextCode
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if IsError(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if IsError(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// TextCode returns the text code of a rich error, or an empty string
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
