// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/pkg/models"
)

// ErrorCode classifies a failure so callers can decide between retrying,
// skipping a listing and aborting a run.
type ErrorCode string

const (
	ErrCodeTransient          ErrorCode = "TRANSIENT"
	ErrCodeStructure          ErrorCode = "STRUCTURE"
	ErrCodeDecode             ErrorCode = "DECODE"
	ErrCodeConfig             ErrorCode = "CONFIG"
	ErrCodeUnknownMarketplace ErrorCode = "UNKNOWN_MARKETPLACE"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
)

// Sentinels for errors.Is checks. Matching is by code.
var (
	ErrTransient          = &EngineError{Code: ErrCodeTransient}
	ErrStructure          = &EngineError{Code: ErrCodeStructure}
	ErrDecode             = &EngineError{Code: ErrCodeDecode}
	ErrConfig             = &EngineError{Code: ErrCodeConfig}
	ErrUnknownMarketplace = &EngineError{Code: ErrCodeUnknownMarketplace}
	ErrNotFound           = &EngineError{Code: ErrCodeNotFound}

	ErrMissingCredentials = errors.New("marketplace credentials not configured")
	ErrAmbiguousClosure   = errors.New("embedded state closure is ambiguous")
	ErrNoData             = errors.New("no extractor produced data")
)

// Detail keys used across adapters
const (
	DetailMarketplace = "marketplace"
	DetailURL         = "url"
	DetailStage       = "stage"
	DetailListingID   = "listing_id"
)

// EngineError wraps errors with a code and structured context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if stage, ok := e.Details[DetailStage]; ok {
		msg += fmt.Sprintf(" (stage %v)", stage)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is matches another EngineError by code, falling back to the wrapped error
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// Retryable reports whether the retry policy may run the operation again
func (e *EngineError) Retryable() bool {
	return e.Retry
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Retry:      code == ErrCodeTransient,
		Details:    make(map[string]interface{}),
	}
}

// StructureError reports that a required nested structure is missing
func StructureError(marketplace, message string) *EngineError {
	return NewEngineError(ErrCodeStructure, message, nil).WithDetail(DetailMarketplace, marketplace)
}

// DecodeError reports that a payload could not be decoded at all
func DecodeError(marketplace string, err error) *EngineError {
	return NewEngineError(ErrCodeDecode, "payload could not be decoded", err).WithDetail(DetailMarketplace, marketplace)
}

// ConfigError reports a missing or invalid setting
func ConfigError(marketplace, message string, err error) *EngineError {
	return NewEngineError(ErrCodeConfig, message, err).WithDetail(DetailMarketplace, marketplace)
}

// WithRetry marks the error as retryable
func (e *EngineError) WithRetry() *EngineError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a string detail from err if it is an EngineError
func Detail(err error, key string) string {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return ""
	}
	if v, ok := ee.Details[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// CodeOf returns the code of err, or empty if err carries none
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// TransportError classifies a failed fetch of rawURL after the retry policy
// gave up. Missing resources become NOT_FOUND, everything else TRANSIENT.
func TransportError(rawURL string, err error) *EngineError {
	var sc retry.StatusCoder
	if errors.As(err, &sc) {
		switch sc.GetStatusCode() {
		case http.StatusNotFound, http.StatusGone:
			return NewEngineError(ErrCodeNotFound, "resource not found", err).WithDetail(DetailURL, rawURL)
		}
	}
	ee := NewEngineError(ErrCodeTransient, "fetch failed", err).WithDetail(DetailURL, rawURL)
	ee.Retry = false
	return ee
}

// ForListing attaches marketplace, URL and listing id to a parse failure so
// that the caller can log it without extra context. Errors that are not
// EngineErrors are wrapped as DECODE.
func ForListing(err error, marketplace string, ref models.ListingRef) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if !errors.As(err, &ee) {
		ee = NewEngineError(ErrCodeDecode, "listing could not be parsed", err)
		err = ee
	}
	ee.WithDetail(DetailMarketplace, marketplace)
	if _, ok := ee.Details[DetailURL]; !ok && ref.URL != "" {
		ee.WithDetail(DetailURL, ref.URL)
	}
	if ref.ListingID != "" {
		ee.WithDetail(DetailListingID, ref.ListingID)
	}
	return err
}
