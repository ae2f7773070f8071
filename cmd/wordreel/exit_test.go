package main

import (
	"errors"
	"testing"

	"wordreel/internal/pipeline/errs"
)

func TestExitCodeForNilIsSuccess(t *testing.T) {
	if got := exitCodeFor(nil); got != exitSuccess {
		t.Errorf("exitCodeFor(nil) = %d, want %d", got, exitSuccess)
	}
}

func TestExitCodeForBadRequestIsBadArguments(t *testing.T) {
	err := errs.Wrap(errs.ErrBadRequest, "cli", "parse flags", "--text is required", nil)
	if got := exitCodeFor(err); got != exitBadArguments {
		t.Errorf("exitCodeFor(bad request) = %d, want %d", got, exitBadArguments)
	}
}

func TestExitCodeForOtherErrorIsFatalFailure(t *testing.T) {
	err := errors.New("boom")
	if got := exitCodeFor(err); got != exitFatalFailure {
		t.Errorf("exitCodeFor(other) = %d, want %d", got, exitFatalFailure)
	}
}
