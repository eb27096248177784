// Package services holds the application logic of the wellness backend:
// assessment submission and streaks, the daily journal session, the AI
// conversation flow, metrics capture, users and feedback.
//
// This file centralizes the service-level error values so that handlers can
// map them to HTTP results with errors.Is.
package services

import "errors"

// Storage and provider availability.
var (
	// ErrStorageUnavailable wraps a database error on a path that has no
	// fallback. It is transient; callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAIServiceUnavailable wraps an llm.Failure other than a moderation
	// rejection. The user message is already stored when it is returned.
	ErrAIServiceUnavailable = errors.New("ai service unavailable")
)

// Validation errors.
var (
	// ErrMissingUser is returned when no user identifier was supplied.
	ErrMissingUser = errors.New("user id is required")

	// ErrInvalidAssessment is returned when the assessment type or score is
	// missing.
	ErrInvalidAssessment = errors.New("assessmentType and score are required")

	// ErrEmptyPrompt is returned when a message has no content.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a message exceeds MaxPromptRunes.
	ErrTooLong = errors.New("prompt too long")

	// ErrInvalidProfile is returned when a profile field exceeds its limit.
	ErrInvalidProfile = errors.New("profile field too long")

	// ErrInvalidSender is returned when a client posts a message as anything
	// other than the user.
	ErrInvalidSender = errors.New("sender must be \"user\"")
)

// Lookup errors.
var (
	// ErrUserNotFound indicates that no user has the requested id.
	ErrUserNotFound = errors.New("user not found")

	// ErrEntryNotFound indicates that the journal entry does not exist or is
	// not owned by the current user.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrNothingToRetry is returned by Retry when the entry has no messages.
	ErrNothingToRetry = errors.New("no user message to retry")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")
)

// Feedback errors.
var (
	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (-1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrForbiddenFeedback is returned when a user rates a message they do
	// not own, or a message that is not an assistant reply.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when the user already rated the
	// message.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
