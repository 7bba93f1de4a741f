package gdbstub

import (
	"fmt"
)

// Command is a decoded request. The set is closed: Continue is the only
// request acted upon, everything else is Unsupported.
type Command interface {
	command()
}

type Continue struct {
	Addr    uint64
	HasAddr bool
}

type Unsupported struct {
	Code byte
}

func (Continue) command()    {}
func (Unsupported) command() {}

func parseCommand(request []byte) Command {
	if len(request) == 0 || request[0] == 0 {
		return Unsupported{}
	}

	code, args := request[0], request[1:]
	switch code {
	case 'c':
		addr, n := hexToInt(&args)
		return Continue{Addr: addr, HasAddr: n > 0}
	}
	return Unsupported{Code: code}
}

// HandleException runs one debug session. It serves requests from the
// debugger until a continue request arrives, applies it to regs and returns.
// The only other way out is a transport error.
func (g *Stub) HandleException(regs Registers) error {
	if regs == nil {
		return ErrNoRegisters
	}
	if !g.active.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	defer g.active.Store(false)

	g.m.sessions.Inc()
	g.logException("Hello from GDB!")

	for {
		request, err := g.getPacket()
		if err != nil {
			return err
		}
		g.log.Debug().Str("request", string(request)).Msg("request received")

		switch cmd := parseCommand(request).(type) {
		case Continue:
			/* Continue normal program execution and leave debug handler */
			if cmd.HasAddr {
				regs.Set(g.cfg.PCRegister, cmd.Addr)
			}
			g.log.Debug().Str("pc", fmt.Sprintf("%#x", regs.Get(g.cfg.PCRegister))).Msg("resuming")
			return nil

		case Unsupported:
			g.m.unknownCommands.Inc()
			g.log.Warn().Str("command", fmt.Sprintf("%q", cmd.Code)).Msg("Unknown GDB command.")

			/* Empty reply tells the debugger the request is not supported */
			clear(g.outBuf)
			g.outLen = 0
		}

		if err := g.putPacket(); err != nil {
			return err
		}
	}
}
