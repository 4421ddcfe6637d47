package annotation

import "fmt"

// TransportError reports a network or API failure while talking to the
// vision model. Fatal to the current call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("analysis request failed (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SafetyBlockError is the distinguished case of a transport failure
// where the model refused the content on safety grounds. It carries a
// clearer user-facing message than a generic transport error.
type SafetyBlockError struct {
	Op string
}

func (e *SafetyBlockError) Error() string {
	return fmt.Sprintf("the image was blocked by the content safety policy (%s); try a different image", e.Op)
}

// FormatError reports a model response that failed schema validation.
// Fatal for page and snippet analysis; summary and error explanation
// degrade to fallback text instead.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("analysis response was not in the expected format (%s): %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
