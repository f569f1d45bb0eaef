package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody      = "Invalid request body"
	ErrMsgInvalidDefenseRequestID = "Invalid defense request ID"
	ErrMsgUnauthorized            = "Unauthorized"
	ErrMsgForbidden               = "Insufficient permissions"
	ErrMsgNotFound                = "Defense request not found"
	ErrMsgInternal                = "Internal server error"
)

// API path constants
const (
	APIBasePath = "/api/v1"
)
