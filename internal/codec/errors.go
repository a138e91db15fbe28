package codec

import (
	"errors"
	"io"
)

// ErrInvalidUTF8 is returned by ReadIndexRecord/ReadDataRecord when a
// decoded key or value is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("codec: decoded bytes are not valid UTF-8")

// IsTruncated reports whether err indicates a size field required reading
// past the end of the file — io.EOF if nothing at all was left, or
// io.ErrUnexpectedEOF if a partial record was read.
func IsTruncated(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
