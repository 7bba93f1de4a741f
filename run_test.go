package gdbstub

import (
	"bytes"
	"io"
	"maps"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegisters() Registers {
	return Registers{
		RegPC:         0x40000400,
		RegPS:         0x00060020,
		AddressReg(0): 0x1234,
		AddressReg(1): 0x3fffe000,
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{in: "c", want: Continue{}},
		{in: "c1000", want: Continue{Addr: 0x1000, HasAddr: true}},
		{in: "c0", want: Continue{Addr: 0, HasAddr: true}},
		{in: "cxyz", want: Continue{}},
		{in: "c\x00ff", want: Continue{}},
		{in: "z", want: Unsupported{Code: 'z'}},
		{in: "m0,4", want: Unsupported{Code: 'm'}},
		{in: "", want: Unsupported{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCommand([]byte(tt.in)), "%q", tt.in)
	}
}

func TestHandleExceptionContinueAtAddress(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("c1000")+"+", Config{})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))

	want := testRegisters()
	want[RegPC] = 0x1000
	if diff := cmp.Diff(want, regs); diff != "" {
		t.Fatalf("registers mismatch (-want +got):\n%s", diff)
	}

	/* Only the acknowledgment, continue has no reply */
	assert.Equal(t, "+", tr.out.String())
	assert.Equal(t, 1, tr.in.Len(), "trailing byte must not be consumed")
}

func TestHandleExceptionContinueInPlace(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("c"), Config{})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))
	if diff := cmp.Diff(testRegisters(), regs); diff != "" {
		t.Fatalf("registers changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, "+", tr.out.String())
}

func TestHandleExceptionUnknownCommand(t *testing.T) {
	var logBuf bytes.Buffer
	g, tr := newTestStub(t, encodeRSP("z")+"+", Config{Log: zerolog.New(&logBuf)})
	regs := testRegisters()

	/* The session goes back to receiving and finds the script exhausted */
	err := g.HandleException(regs)
	require.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "+$#00", tr.out.String())
	assert.Contains(t, logBuf.String(), "Unknown GDB command.")
	assert.Contains(t, logBuf.String(), "Hello from GDB!")
	assert.Equal(t, 1.0, testutil.ToFloat64(g.m.unknownCommands))
	if diff := cmp.Diff(testRegisters(), regs); diff != "" {
		t.Fatalf("registers changed (-want +got):\n%s", diff)
	}
}

func TestHandleExceptionUnknownThenContinue(t *testing.T) {
	script := encodeRSP("qSupported") + "-+" + encodeRSP("?") + "+" + encodeRSP("c2000")
	g, tr := newTestStub(t, script, Config{})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))
	assert.Equal(t, uint64(0x2000), regs[RegPC])
	assert.Equal(t, "+$#00$#00+$#00+", tr.out.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(g.m.retransmissions))
}

func TestHandleExceptionDoesNotReplayStaleReply(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("z")+"+"+encodeRSP("c"), Config{})
	g.outLen = copy(g.outBuf, "stale")

	require.NoError(t, g.HandleException(testRegisters()))
	assert.Equal(t, "+$#00+", tr.out.String())
	assert.Zero(t, g.outLen)
	assert.Equal(t, make([]byte, len(g.outBuf)), g.outBuf)
}

func TestHandleExceptionClearsUnsentReplyBytes(t *testing.T) {
	g, _ := newTestStub(t, encodeRSP("z")+"+"+encodeRSP("c"), Config{})
	copy(g.outBuf, "stale")

	require.NoError(t, g.HandleException(testRegisters()))
	assert.Equal(t, make([]byte, len(g.outBuf)), g.outBuf)
}

func TestHandleExceptionCorruptChecksumIsAcknowledged(t *testing.T) {
	g, tr := newTestStub(t, "$c1000#00", Config{})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))

	/* Positive acknowledgment even though the checksum is wrong */
	assert.Equal(t, "+", tr.out.String())
	assert.Equal(t, uint64(0x1000), regs[RegPC])
	assert.Equal(t, 1.0, testutil.ToFloat64(g.m.checksumErrors))
}

func TestHandleExceptionSequenceID(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("07:c2000"), Config{})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))
	assert.Equal(t, "+07", tr.out.String())
	assert.Equal(t, uint64(0x2000), regs[RegPC])
}

func TestHandleExceptionCustomPCRegister(t *testing.T) {
	epc1 := SpecialReg(0xb1)
	g, _ := newTestStub(t, encodeRSP("c4000"), Config{PCRegister: epc1})
	regs := testRegisters()

	require.NoError(t, g.HandleException(regs))

	want := testRegisters()
	want[epc1] = 0x4000
	if diff := cmp.Diff(want, regs); diff != "" {
		t.Fatalf("registers mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleExceptionRejectsNilRegisters(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("c"), Config{})

	assert.ErrorIs(t, g.HandleException(nil), ErrNoRegisters)
	assert.Empty(t, tr.out.String())
}

func TestHandleExceptionNotReentrant(t *testing.T) {
	g, tr := newTestStub(t, encodeRSP("c"), Config{})
	g.active.Store(true)

	assert.ErrorIs(t, g.HandleException(testRegisters()), ErrSessionActive)
	assert.Empty(t, tr.out.String())

	g.active.Store(false)
	assert.NoError(t, g.HandleException(testRegisters()))
}

func TestHandleExceptionSessionsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, _ := newTestStub(t, encodeRSP("c")+encodeRSP("c10"), Config{Registerer: reg})
	regs := testRegisters()
	before := maps.Clone(regs)

	require.NoError(t, g.HandleException(regs))
	require.NoError(t, g.HandleException(regs))

	assert.Equal(t, before[RegPS], regs[RegPS])
	assert.Equal(t, uint64(0x10), regs[RegPC])

	n, err := testutil.GatherAndCount(reg, "gdbstub_sessions_total", "gdbstub_packets_received_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(g.m.sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(g.m.packets))
}
