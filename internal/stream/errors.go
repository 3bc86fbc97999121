package stream

import "errors"

// ErrTruncatedUTF8 is returned when a modified UTF-8 byte sequence ends mid-character.
var ErrTruncatedUTF8 = errors.New("stream: truncated modified UTF-8 sequence")

// ErrInvalidUTF8 is returned when a leading byte does not match any modified UTF-8 form.
var ErrInvalidUTF8 = errors.New("stream: invalid modified UTF-8 leading byte")
