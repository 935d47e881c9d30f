package ogawa

import "errors"

var (
	// ErrIO indicates that the underlying byte source failed to satisfy a
	// read or seek request (short read, seek past end, etc).
	ErrIO = errors.New("byte source read failure")

	// ErrInvalidArchive indicates a well-formed byte source with malformed
	// content: an unexpected chunk kind where another was required, a size
	// mismatch, a non-UTF-8 string, or an enum value out of range.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrUnsupportedArchive indicates archive content that is recognised
	// or deliberately out of scope: a file whose magic is not "Ogawa", an
	// archive-file version at or above 9999, or a WString/Boolean/Unknown
	// POD in a typed-array decode.
	ErrUnsupportedArchive = errors.New("unsupported archive")

	// ErrIncompatibleSchema indicates that an object does not carry a
	// schema token, carries an unrecognised one, or is missing a required
	// sub-property (or has one with the wrong POD/extent).
	ErrIncompatibleSchema = errors.New("incompatible schema")

	// ErrOutOfBounds indicates caller misuse: a sample, chunk, or child
	// index outside the valid range for the object being queried.
	ErrOutOfBounds = errors.New("index out of bounds")
)
