package gdbstub

import (
	"fmt"
)

func (g *Stub) sendRaw(data ...byte) error {
	for _, m := range data {
		if err := g.putChar(m); err != nil {
			return fmt.Errorf("gdbstub: write: %w", err)
		}
	}
	if err := g.flush(); err != nil {
		return fmt.Errorf("gdbstub: flush: %w", err)
	}
	return nil
}

func (g *Stub) recvRaw() (byte, error) {
	ch, err := g.getChar()
	if err != nil {
		return 0, fmt.Errorf("gdbstub: read: %w", err)
	}
	return ch, nil
}

// getPacket scans for $<data>#<checksum> and returns the data. The result
// aliases the inbound buffer and is only valid until the next call.
func (g *Stub) getPacket() ([]byte, error) {
	buf := g.inBuf

	/* Wait for start of packet, everything else is noise */
	for {
		ch, err := g.recvRaw()
		if err != nil {
			return nil, err
		}
		if ch == '$' {
			break
		}
	}

	var (
		count  int
		csum   uint8
		framed bool
	)

accumulate:
	for {
		count, csum = 0, 0

		/* Leave room for the terminator */
		for count < len(buf)-1 {
			ch, err := g.recvRaw()
			if err != nil {
				return nil, err
			}

			switch ch {
			case '$':
				g.log.Debug().Int("discarded", count).Msg("packet restarted")
				continue accumulate
			case '#':
				framed = true
				break accumulate
			}

			csum += ch
			buf[count] = ch
			count++
		}
		break
	}
	buf[count] = 0
	g.m.packets.Inc()

	if !framed {
		g.m.truncated.Inc()
		g.log.Warn().Int("size", count).Msg("packet truncated at buffer capacity")
		return buf[:count], nil
	}

	var sum [2]byte
	for i := range sum {
		ch, err := g.recvRaw()
		if err != nil {
			return nil, err
		}
		sum[i] = ch
	}

	hi, okHi := hexDigit(sum[0])
	lo, okLo := hexDigit(sum[1])
	if !okHi || !okLo || hi<<4|lo != csum {
		g.m.checksumErrors.Inc()
		g.log.Warn().
			Str("got", string(sum[:])).
			Str("want", fmt.Sprintf("%02x", csum)).
			Msg("checksum mismatch")

		// TODO: answer with '-' so the debugger retransmits, once the
		// debuggers in use are known to cope with it.
		return buf[:count], g.sendRaw('+')
	}

	/* Reply the sequence ID if one is present */
	if count >= 3 && buf[2] == ':' {
		return buf[3:count], g.sendRaw('+', buf[0], buf[1])
	}

	return buf[:count], g.sendRaw('+')
}

// putPacket frames the outbound buffer and sends it until the debugger
// acknowledges it. The outbound buffer is empty afterwards.
func (g *Stub) putPacket() error {
	var csum uint8

	g.frame = append(g.frame[:0], '$')
	for i, m := range g.outBuf[:g.outLen] {
		g.frame = append(g.frame, m)
		g.outBuf[i] = 0
		csum += m
	}
	g.outLen = 0
	g.frame = append(g.frame, '#', hexChars[csum>>4], hexChars[csum&0xf])

	for {
		if err := g.sendRaw(g.frame...); err != nil {
			return err
		}

		ack, err := g.recvRaw()
		if err != nil {
			return err
		}
		if ack == '+' {
			return nil
		}

		g.m.retransmissions.Inc()
		g.log.Debug().Str("ack", fmt.Sprintf("%q", ack)).Msg("retransmitting packet")
	}
}
