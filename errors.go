package gdbstub

import "errors"

var (
	ErrSessionActive = errors.New("gdbstub: debug session already active")
	ErrNoRegisters   = errors.New("gdbstub: no register context")
)
