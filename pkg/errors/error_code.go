package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation and configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidOrderRequest  ErrorCode = 103
	ErrCodeConfigLoadFailed     ErrorCode = 104

	// REST errors (200-299)
	ErrCodeRESTRequestFailed  ErrorCode = 200
	ErrCodeRESTUnexpectedCode ErrorCode = 201
	ErrCodeRESTDecodeFailed   ErrorCode = 202

	// Streaming errors (300-399)
	ErrCodeStreamConnectFailed  ErrorCode = 300
	ErrCodeStreamDisconnected   ErrorCode = 301
	ErrCodeStreamFatal          ErrorCode = 302
	ErrCodeRetryBudgetExhausted ErrorCode = 303

	// Decoding errors (400-499)
	ErrCodeStreamParseFailed ErrorCode = 400
	ErrCodeMissingField      ErrorCode = 401
	ErrCodeInvalidField      ErrorCode = 402
	ErrCodeUnknownType       ErrorCode = 403

	// Persistence errors (500-599)
	ErrCodeRecorderInitFailed  ErrorCode = 500
	ErrCodeRecorderWriteFailed ErrorCode = 501
	ErrCodeRecorderNotReady    ErrorCode = 502
)
