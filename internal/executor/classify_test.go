package executor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/torosent/volley/internal/request"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func wrap(err error) error {
	return &url.Error{Op: "Get", URL: "http://localhost", Err: err}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want request.ErrorKind
	}{
		{"deadline", wrap(context.DeadlineExceeded), request.ErrorTimeout},
		{"net timeout", wrap(timeoutErr{}), request.ErrorTimeout},
		{"os deadline", wrap(os.ErrDeadlineExceeded), request.ErrorTimeout},
		{"refused", wrap(&net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}), request.ErrorConnectionRefused},
		{"reset", wrap(&net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}), request.ErrorConnectionReset},
		{"broken pipe", wrap(&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}), request.ErrorConnectionReset},
		{"eof", wrap(io.EOF), request.ErrorConnectionReset},
		{"other", wrap(errors.New("tls: bad certificate")), request.ErrorOther},
		{"nil", nil, request.ErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
