package main

import (
	"errors"

	"wordreel/internal/pipeline/errs"
)

const (
	exitSuccess      = 0
	exitFatalFailure = 1
	exitBadArguments = 2
)

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errs.ErrBadRequest):
		return exitBadArguments
	default:
		return exitFatalFailure
	}
}
