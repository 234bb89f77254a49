package core

// error_messages.go turns technical errors into messages a person uploading
// a spreadsheet can act on. Each message carries a code that can be quoted
// when reporting a problem.
//
// Codes by category:
//
//	FILE001  file too large          FILE002  empty file
//	FILE003  no file provided        FILE004  file could not be read
//	VAL001   invalid date            VAL002   missing required column
//	VAL003   invalid csv decoding
//	CONV001  too many conversions    CONV002  conversion not found
//	CONV003  request cancelled       CONV004  request timed out
//	DB001    connection refused      DB002    connection reset
//	DB003    database timeout        DB004    history disabled
//	RATE001  rate limited
//	ERR000   anything else; check the server log for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns sit above general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File handling
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the spreadsheet into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV file with a header line and at least one event",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV file to convert",
			Code:    "FILE003",
		},
	},
	{
		pattern: "read file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the path and file permissions",
			Code:    "FILE004",
		},
	},

	// Content
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "A start or end date could not be read",
			Action:  "Use dates like 2025-07-19 and times like 13:00 or 13:00:00",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A required column is missing",
			Action:  "Make sure the header has name, start date and start time columns",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown csv decoding",
		msg: UserMessage{
			Message: "Unsupported character decoding",
			Action:  "Use bytes or utf8",
			Code:    "VAL003",
		},
	},

	// Conversion flow. The context patterns sit above the generic timeout.
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "The converter is busy with other files",
			Action:  "Wait a moment and try again",
			Code:    "CONV001",
		},
	},
	{
		pattern: "conversion not found",
		msg: UserMessage{
			Message: "Conversion not found",
			Action:  "Check the conversion ID in the history list",
			Code:    "CONV002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "CONV003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "CONV004",
		},
	},

	// Database
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB003",
		},
	},
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Conversion history is not enabled on this server",
			Action:  "Set DATABASE_URL to keep a history of conversions",
			Code:    "DB004",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the first message whose pattern appears in err's text,
// or the ERR000 fallback. A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap exposes the original for logging and errors.Is.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
