package middleware

import (
	"errors"

	"github.com/researchartifacts/aestats/internal/errs"
	"github.com/researchartifacts/aestats/internal/logger"
)

// ErrLogged signals that the failure was already printed in full, so
// callers up the stack only set the exit code.
var ErrLogged = errors.New("already logged")

func FlagComboError(code errs.Code, a ...any) error {
	msg := errs.Msg(code, a...)
	logger.LogError("%s", msg)
	return ErrLogged
}

// LoggedError prints an already-formatted error in full and returns the
// sentinel.
func LoggedError(err error) error {
	logger.LogError("%s", err.Error())
	return ErrLogged
}
