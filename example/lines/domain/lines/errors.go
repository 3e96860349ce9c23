package lines

import (
	"errors"
	"fmt"

	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
)

const module = "lines"

var (
	// ErrDeserialization はコンテキストの値が Line のリストとして解釈できないことを示します。
	ErrDeserialization = errors.New("lines: deserialization failed")
	// ErrSerialization は Line のリストを文字列にできなかったことを示します。
	ErrSerialization = errors.New("lines: serialization failed")
	// ErrMissingField は必須フィールド (dob) がないレコードがあることを示します。
	ErrMissingField = errors.New("lines: missing required field")
)

// newError は kind を errors.Is で判定できる BatchError を作成します。
func newError(kind error, message string, cause error) *exception.BatchError {
	wrapped := kind
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", kind, cause)
	}
	return exception.NewBatchError(module, message, wrapped, false, false)
}
