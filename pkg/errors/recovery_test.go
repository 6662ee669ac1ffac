package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "SVR.Fit")
		panic("kernel matrix is empty")
	}

	err := fit()
	if err == nil {
		t.Fatal("expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if panicErr.Operation != "SVR.Fit" {
		t.Errorf("Operation = %q, want SVR.Fit", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("expected non-empty stack trace")
	}
	if got, want := panicErr.Error(), "panic in SVR.Fit: kernel matrix is empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "Fit")
		return nil
	}
	if err := fit(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	original := fmt.Errorf("validation failed")

	fit := func() (err error) {
		defer Recover(&err, "Fit")
		err = original
		panic("panic after error")
	}

	err := fit()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "panic in Fit") || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("message should mention both causes: %s", err.Error())
	}
	if !errors.Is(err, original) {
		t.Error("original error should stay reachable with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	fnErr := fmt.Errorf("function error")

	tests := []struct {
		name      string
		fn        func() error
		wantErr   error
		wantPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return fnErr }, wantErr: fnErr},
		{name: "string panic", fn: func() error { panic("boom") }, wantPanic: true},
		{name: "error panic", fn: func() error { panic(fmt.Errorf("index out of range")) }, wantPanic: true},
		{name: "int panic", fn: func() error { panic(42) }, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("trial", tt.fn)

			if tt.wantPanic {
				var panicErr *PanicError
				if !errors.As(err, &panicErr) {
					t.Fatalf("expected PanicError, got %T: %v", err, err)
				}
				if panicErr.Operation != "trial" {
					t.Errorf("Operation = %q, want trial", panicErr.Operation)
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("SafeExecute() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSafeExecute_Chaining(t *testing.T) {
	var stages []string
	run := func(name string, fn func() error) error {
		err := SafeExecute(name, fn)
		if err == nil {
			stages = append(stages, name)
		}
		return err
	}

	if err := run("split", func() error { return nil }); err != nil {
		t.Fatalf("split: %v", err)
	}
	err := run("fit", func() error { panic("diverged") })
	if err == nil {
		t.Fatal("fit should fail")
	}
	if len(stages) != 1 || stages[0] != "split" {
		t.Errorf("completed stages = %v, want [split]", stages)
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error { return nil })
	}
}
