package pipeline

import "errors"

var (
	ErrUnknownModel       = errors.New("unsupported model")
	ErrUnreadableInput    = errors.New("unreadable input artifact")
	ErrBackendUnavailable = errors.New("pipeline backend unavailable")
	ErrInferenceFailed    = errors.New("inference failed")
)
