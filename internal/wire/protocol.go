package wire

import "fmt"

// ProtocolError reports a malformed or mismatched response.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %s: %s", e.Code, e.Message)
}

// ValidateResponse checks that resp is non-nil, is not an error envelope,
// and has the expected type. If resp is an error envelope, the returned
// error is a *ProtocolError built from its ErrorPayload.
func ValidateResponse(resp *Envelope, expected Type) error {
	if resp == nil {
		return &ProtocolError{Code: "NIL_RESPONSE", Message: "no response received"}
	}
	if resp.Type == TypeError {
		if resp.Error != nil {
			return &ProtocolError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return &ProtocolError{Code: "UNKNOWN", Message: "error response with no detail"}
	}
	if resp.Type != expected {
		return &ProtocolError{
			Code:    "TYPE_MISMATCH",
			Message: fmt.Sprintf("expected %s, got %s", expected, resp.Type),
		}
	}
	return nil
}

// ParseResponse validates resp and decodes its payload into target.
func ParseResponse(resp *Envelope, expected Type, target interface{}) error {
	if err := ValidateResponse(resp, expected); err != nil {
		return err
	}
	return resp.Decode(target)
}

// IsProtocolError reports whether err is a *ProtocolError.
func IsProtocolError(err error) bool {
	_, ok := err.(*ProtocolError)
	return ok
}

// ProtocolErrorCode extracts the code from a *ProtocolError, or "" otherwise.
func ProtocolErrorCode(err error) string {
	if pe, ok := err.(*ProtocolError); ok {
		return pe.Code
	}
	return ""
}
