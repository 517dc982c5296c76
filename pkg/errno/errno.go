package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 返回带具体说明的副本，错误码不变
func (e Errno) WithMessage(msg string) Errno {
	if msg == "" {
		return e
	}
	return Errno{Code: e.Code, Message: e.Message + ": " + msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrUnauthorized     = Errno{Code: 10003, Message: "Admin token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (30000+ 结算相关)
var (
	ErrCreatorNotFound = Errno{Code: 30101, Message: "Creator not found"}
	ErrInvalidQuery    = Errno{Code: 30102, Message: "Invalid query parameters"}
	ErrRunFailed       = Errno{Code: 30201, Message: "Payout run failed"}
	ErrRunInProgress   = Errno{Code: 30202, Message: "Another payout run is in progress"}
)
