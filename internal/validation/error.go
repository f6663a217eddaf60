package validation

// Error marks a failure caused by bad user input, as opposed to a fault in
// the system handling it. Handlers map it to a 400 response.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

func NewError(msg string) *Error {
	return &Error{msg: msg}
}
