package gdbstub

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxPacketSize = 256
	minPacketSize        = 4
)

type Config struct {
	/* Size of the inbound and outbound packet buffers, terminator included */
	MaxPacketSize int

	/* Register written by the continue command */
	PCRegister RegisterID

	Log zerolog.Logger

	/* Receives the protocol counters, one stub per registry */
	Registerer prometheus.Registerer
}

type Stub struct {
	conn Transport
	cfg  Config
	log  zerolog.Logger
	m    *metrics

	inBuf  []byte
	outBuf []byte
	outLen int
	frame  []byte

	active atomic.Bool
}

func New(conn Transport, cfg Config) (*Stub, error) {
	if conn == nil {
		return nil, fmt.Errorf("gdbstub: nil transport")
	}

	if cfg.MaxPacketSize == 0 {
		cfg.MaxPacketSize = DefaultMaxPacketSize
	}
	if cfg.MaxPacketSize < minPacketSize {
		return nil, fmt.Errorf("gdbstub: packet size %d below minimum %d", cfg.MaxPacketSize, minPacketSize)
	}
	if cfg.PCRegister == 0 {
		cfg.PCRegister = RegPC
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("gdbstub: register metrics: %w", err)
	}

	return &Stub{
		conn:   conn,
		cfg:    cfg,
		log:    cfg.Log,
		m:      m,
		inBuf:  make([]byte, cfg.MaxPacketSize),
		outBuf: make([]byte, cfg.MaxPacketSize),
		/* '$' + payload + '#' + two checksum digits */
		frame: make([]byte, 0, cfg.MaxPacketSize+4),
	}, nil
}
