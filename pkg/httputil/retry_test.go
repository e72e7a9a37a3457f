package httputil

import (
	"context"
	"errors"
	"testing"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
)

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503")}
	network := sserrors.Network(errors.New("dial tcp: refused"), "search")
	permanent := sserrors.New(sserrors.ErrCodeNotFound, "card 99999")

	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first try", []error{nil}, 3, 1, nil},
		{"transient then ok", []error{transient, nil}, 3, 2, nil},
		{"network then ok", []error{network, network, nil}, 3, 3, nil},
		{"permanent", []error{permanent, nil}, 3, 1, permanent},
		{"exhausted", []error{transient, transient, transient}, 3, 3, transient},
		{"zero attempts runs once", []error{transient}, 0, 1, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("timeout")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&RetryableError{Err: errors.New("x")}, true},
		{sserrors.Network(nil, "x"), true},
		{sserrors.New(sserrors.ErrCodeTimeout, "x"), true},
		{sserrors.Parse(nil, "x"), false},
		{errors.New("plain"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
