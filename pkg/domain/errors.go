package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConversationNotFound is returned by stores when no state exists for an ID.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidConversationID is returned when an ID is empty or unsafe for a store key.
	ErrInvalidConversationID = errors.New("invalid conversation id")
	// ErrLockTimeout is returned when a distributed lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// Fixed error tags.
const (
	TagMessageBuilderError = "message_builder_error"
	TagSendFailed          = "wapi_send_failed"
	TagNoRecipient         = "no_recipient"
)

// TagExtractionFailed marks a field whose primary and fallback extraction both failed.
func TagExtractionFailed(field string) string {
	return "extraction_failed_" + field
}

// TagScanFailed marks a retroactive scan that exhausted its window.
func TagScanFailed(field string) string {
	return "scan_failed_" + field
}

// TagValidationNoData marks a validation run against an absent record.
func TagValidationNoData(path string) string {
	return "validation_no_data_" + path
}

// TagValidationFailed marks one field-level validation failure.
func TagValidationFailed(path, field, kind string) string {
	return fmt.Sprintf("validation_failed_%s.%s_%s", path, field, kind)
}

// TagValidationError marks an unexpected error raised by the validator itself.
func TagValidationError(path string) string {
	return "validation_error_" + path
}

// TagRequestBuilderError marks a failed request construction.
func TagRequestBuilderError(path string) string {
	return "api_request_builder_error_" + path
}

// TagCallFailed marks an external call that exhausted its attempts.
func TagCallFailed(path string) string {
	return "api_call_failed_" + path
}

// TagTransformError marks a failed transformer.
func TagTransformError(target string) string {
	return "transform_error_" + target
}

// ValidateConversationID rejects ids that are empty, overly long, or unsafe to
// embed in a store key or file name.
func ValidateConversationID(id string) error {
	if id == "" || len(id) > 256 || id == "." || id == ".." {
		return ErrInvalidConversationID
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
		}
	}
	return nil
}
