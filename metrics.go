package gdbstub

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	sessions        prometheus.Counter
	packets         prometheus.Counter
	checksumErrors  prometheus.Counter
	truncated       prometheus.Counter
	retransmissions prometheus.Counter
	unknownCommands prometheus.Counter
}

// newMetrics creates the protocol counters and registers them on reg. A nil
// reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_sessions_total",
			Help: "Debug exceptions handled",
		}),
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_packets_received_total",
			Help: "Packets received from the debugger",
		}),
		checksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_checksum_errors_total",
			Help: "Received packets whose checksum did not match",
		}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_truncated_packets_total",
			Help: "Received packets cut off at the buffer capacity",
		}),
		retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_retransmissions_total",
			Help: "Replies sent again because the debugger did not acknowledge them",
		}),
		unknownCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbstub_unknown_commands_total",
			Help: "Requests with an unsupported command byte",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.sessions, m.packets, m.checksumErrors, m.truncated, m.retransmissions, m.unknownCommands,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
