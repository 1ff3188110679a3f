package cli

import (
	"github.com/fatih/color"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

const (
	symbolSuccess  = "✓"
	symbolError    = "✗"
	symbolWarning  = "⚠"
	symbolDeferred = "○"
)

func statusSuccess(msg string) string { return success(symbolSuccess) + " " + msg }

func statusError(msg string) string { return failure(symbolError) + " " + msg }

func statusWarning(msg string) string { return warning(symbolWarning) + " " + msg }

func statusDeferred(msg string) string { return warning(symbolDeferred) + " " + msg }
