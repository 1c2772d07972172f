package emu

import "errors"

// Fault classes reported through StepResult.Fault. Use errors.Is to test
// the class of a wrapped fault.
var (
	// ErrUndefinedInstruction means no decoder pattern matched the word.
	ErrUndefinedInstruction = errors.New("undefined instruction")

	// ErrUnimplementedInstruction means the word was classified but the
	// format has no handler, such as coprocessor operations.
	ErrUnimplementedInstruction = errors.New("unimplemented instruction")
)
