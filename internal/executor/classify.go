package executor

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/torosent/volley/internal/request"
)

// Classify maps a transport error onto the coarse failure kinds reported in
// outcomes. Timeouts are checked first since a dial timeout is also a
// net.OpError.
func Classify(err error) request.ErrorKind {
	if err == nil {
		return request.ErrorOther
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return request.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return request.ErrorTimeout
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return request.ErrorConnectionRefused
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return request.ErrorConnectionReset
	default:
		return request.ErrorOther
	}
}
