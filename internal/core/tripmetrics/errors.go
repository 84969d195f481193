package tripmetrics

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when fewer than two records are supplied.
	ErrInsufficientData = errors.New("insufficient data: at least two records are required")

	// ErrMalformedCoordinate matches every *MalformedCoordinateError.
	ErrMalformedCoordinate = errors.New("malformed coordinate")

	// ErrMalformedTimestamp matches every *MalformedTimestampError.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrNonPositiveDuration matches every *NonPositiveDurationError.
	ErrNonPositiveDuration = errors.New("non-positive duration")
)

// MalformedCoordinateError reports a record whose coordinate payload could not be decoded.
type MalformedCoordinateError struct {
	Index int
	Err   error
}

func (e *MalformedCoordinateError) Error() string {
	return fmt.Sprintf("record %d: malformed coordinate: %v", e.Index, e.Err)
}

func (e *MalformedCoordinateError) Unwrap() error { return e.Err }

func (e *MalformedCoordinateError) Is(target error) bool { return target == ErrMalformedCoordinate }

// MalformedTimestampError reports a record whose timestamp could not be parsed.
type MalformedTimestampError struct {
	Index int
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("record %d: malformed timestamp: %v", e.Index, e.Err)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

func (e *MalformedTimestampError) Is(target error) bool { return target == ErrMalformedTimestamp }

// NonPositiveDurationError reports an accumulated elapsed time of zero or less,
// for which no average speed exists.
type NonPositiveDurationError struct {
	Hours float64
}

func (e *NonPositiveDurationError) Error() string {
	return fmt.Sprintf("total time is non-positive: %g hours", e.Hours)
}

func (e *NonPositiveDurationError) Is(target error) bool { return target == ErrNonPositiveDuration }

// Outcome is a stable name for the result of a computation.
type Outcome string

const (
	OutcomeOK                  Outcome = "ok"
	OutcomeInsufficientData    Outcome = "insufficient_data"
	OutcomeMalformedCoordinate Outcome = "malformed_coordinate"
	OutcomeMalformedTimestamp  Outcome = "malformed_timestamp"
	OutcomeNonPositiveDuration Outcome = "non_positive_duration"
	OutcomeError               Outcome = "error"
)

// Kind classifies err into an Outcome. A nil error is OutcomeOK.
func Kind(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInsufficientData):
		return OutcomeInsufficientData
	case errors.Is(err, ErrMalformedCoordinate):
		return OutcomeMalformedCoordinate
	case errors.Is(err, ErrMalformedTimestamp):
		return OutcomeMalformedTimestamp
	case errors.Is(err, ErrNonPositiveDuration):
		return OutcomeNonPositiveDuration
	default:
		return OutcomeError
	}
}

// RecordIndex returns the offending record position for per-record outcomes.
func RecordIndex(err error) (int, bool) {
	var mc *MalformedCoordinateError
	if errors.As(err, &mc) {
		return mc.Index, true
	}
	var mt *MalformedTimestampError
	if errors.As(err, &mt) {
		return mt.Index, true
	}
	return 0, false
}
