package pipeline

import "errors"

var (
	// ErrUnsupportedInput is returned for a wrong file type or a
	// submission mixing a document with other inputs. Raised before
	// any processing starts.
	ErrUnsupportedInput = errors.New("unsupported input: submit one PDF or DOCX document, or one or more images, or a single image URL")

	// ErrInsufficientBudget aborts remaining queued work when the
	// session token balance is too low, preserving completed items.
	ErrInsufficientBudget = errors.New("insufficient tokens to continue processing")

	// ErrRunActive is returned when a run is started while another is
	// still processing.
	ErrRunActive = errors.New("a processing run is already active")

	// ErrResetWhileProcessing is returned when reset is requested
	// mid-run; the pipeline does not support mid-run cancellation.
	ErrResetWhileProcessing = errors.New("cannot reset while processing")
)
