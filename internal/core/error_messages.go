package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference.
//
// Error codes are grouped by category:
//
// # Data Model Errors (OED001-OED099)
//
//	OED001 - Malformed schema: fewer than four identifier columns
//	         Patterns: "malformed schema"
//	OED002 - Empty dataset: the response has no rows
//	         Patterns: "empty dataset"
//	OED003 - Unmatched identifier: a data row has no scalar or timeseries row
//	         Patterns: "unmatched identifier"
//	OED004 - Ambiguous identifier: a data row matches both scalars and timeseries
//	         Patterns: "ambiguous identifier"
//	OED005 - Unsupported shape: a table cannot be rendered as CSV
//	         Patterns: "unsupported shape"
//	OED006 - Heterogeneous rows: rows of one table differ in columns
//	         Patterns: "heterogeneous rows"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Unsupported format: unknown output format token
//	         Patterns: "unsupported format"
//	REQ002 - Invalid body: request body is not a raw oedatamodel document
//	         Patterns: "decode raw response"
//	REQ003 - Body too large: request body exceeds the configured limit
//	         Patterns: "request body too large"
//	REQ004 - Request cancelled
//	         Patterns: "context canceled"
//	REQ005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Mapping not found: no mapping file with that name
//	         Patterns: "mapping not found"
//	MAP002 - Mapping cycle: base mappings refer back to each other
//	         Patterns: "mapping cycle"
//	MAP003 - Invalid mapping: mapping file or expression cannot be used
//	         Patterns: "invalid mapping"
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - Missing API key: X-API-Key header not sent
//	          Patterns: "missing api key"
//	AUTH002 - Invalid API key: X-API-Key header does not match
//	          Patterns: "invalid api key"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check the
// application logs for the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains and the
// first matching pattern wins.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// More specific patterns must come before general ones: an oversized body
// surfaces wrapped in a decode error, so REQ003 is listed before REQ002.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Data Model Errors (OED001-OED006)
	// =========================================================================
	{
		pattern: "malformed schema",
		msg: UserMessage{
			Message: "The response does not follow the oedatamodel layout",
			Action:  "Ensure the query returns scenario, data, timeseries and scalar id columns",
			Code:    "OED001",
		},
	},
	{
		pattern: "empty dataset",
		msg: UserMessage{
			Message: "The response contains no rows",
			Action:  "Check the scenario filter of your query",
			Code:    "OED002",
		},
	},
	{
		pattern: "unmatched identifier",
		msg: UserMessage{
			Message: "A data row has no matching scalar or timeseries row",
			Action:  "Use json_normalized to inspect the unmatched ids",
			Code:    "OED003",
		},
	},
	{
		pattern: "ambiguous identifier",
		msg: UserMessage{
			Message: "A data row matches both a scalar and a timeseries row",
			Action:  "Use json_normalized to inspect the duplicate ids",
			Code:    "OED004",
		},
	},
	{
		pattern: "unsupported shape",
		msg: UserMessage{
			Message: "A table cannot be rendered as CSV",
			Action:  "Please try again or contact support",
			Code:    "OED005",
		},
	},
	{
		pattern: "heterogeneous rows",
		msg: UserMessage{
			Message: "Rows of one table have different columns",
			Action:  "Use a JSON format for this response",
			Code:    "OED006",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ005)
	// =========================================================================
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "Unknown output format",
			Action:  "Use one of: raw, json_normalized, json_concrete, csv_normalized, csv_concrete",
			Code:    "REQ001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Request body exceeds the size limit",
			Action:  "Request a smaller page of results",
			Code:    "REQ003",
		},
	},
	{
		pattern: "decode raw response",
		msg: UserMessage{
			Message: "Request body is not a valid oedatamodel document",
			Action:  "Send a JSON object with description and data arrays",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Request a smaller page of results or try again later",
			Code:    "REQ005",
		},
	},

	// =========================================================================
	// Mapping Errors (MAP001-MAP003)
	// =========================================================================
	{
		pattern: "mapping not found",
		msg: UserMessage{
			Message: "Unknown mapping",
			Action:  "List available mappings at /api/mappings",
			Code:    "MAP001",
		},
	},
	{
		pattern: "mapping cycle",
		msg: UserMessage{
			Message: "Mapping refers back to itself through its base mappings",
			Action:  "Fix the base_mapping chain of the mapping file",
			Code:    "MAP002",
		},
	},
	{
		pattern: "invalid mapping",
		msg: UserMessage{
			Message: "Mapping cannot be applied",
			Action:  "Check the mapping file and its expressions",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// Authentication Errors (AUTH001-AUTH002)
	// =========================================================================
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "API key required",
			Action:  "Send your key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid api key",
		msg: UserMessage{
			Message: "API key not recognised",
			Action:  "Check the key or ask an administrator for a new one",
			Code:    "AUTH002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	_, err := Normalize(raw)
//	msg := MapError(err)
//	// msg.Code == "OED001" for a response with too few id columns
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
