package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	gdbstub "github.com/BertoldVdb/go-gdbstub"
	"github.com/pkg/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// linkTransport lets one stub outlive the debugger connections it serves.
type linkTransport struct {
	cur *gdbstub.StreamTransport
}

func (l *linkTransport) attach(rw io.ReadWriter) {
	l.cur = gdbstub.NewStreamTransport(rw)
}

func (l *linkTransport) ReadByte() (byte, error) {
	return l.cur.ReadByte()
}

func (l *linkTransport) WriteByte(c byte) error {
	return l.cur.WriteByte(c)
}

func (l *linkTransport) Flush() error {
	return l.cur.Flush()
}

// target is a simulated processor that traps back into the debug handler as
// soon as it is resumed.
type target struct {
	regs gdbstub.Registers
	stub *gdbstub.Stub
	link *linkTransport
	log  zerolog.Logger
}

func newTarget(cfg serveConfig, log zerolog.Logger, reg prometheus.Registerer) (*target, error) {
	link := &linkTransport{}
	stub, err := gdbstub.New(link, gdbstub.Config{
		MaxPacketSize: cfg.MaxPacketSize,
		Log:           log,
		Registerer:    reg,
	})
	if err != nil {
		return nil, err
	}

	return &target{
		regs: gdbstub.Registers{gdbstub.RegPC: cfg.InitialPC},
		stub: stub,
		link: link,
		log:  log,
	}, nil
}

// run serves debug exceptions on rw until the link fails or ctx ends.
func (t *target) run(ctx context.Context, rw io.ReadWriteCloser) error {
	t.link.attach(rw)

	stop := context.AfterFunc(ctx, func() { rw.Close() })
	defer stop()

	for {
		t.log.Info().Str("pc", fmt.Sprintf("%#x", t.regs.Get(gdbstub.RegPC))).Msg("debug exception")
		if err := t.stub.HandleException(t.regs); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		t.log.Info().Str("pc", fmt.Sprintf("%#x", t.regs.Get(gdbstub.RegPC))).Msg("target resumed")
	}
}

func (t *target) serveTCP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return t.acceptLoop(ctx, ln)
}

// acceptLoop serves debuggers on ln one after the other until ctx ends.
func (t *target) acceptLoop(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	t.log.Info().Str("addr", ln.Addr().String()).Msg("waiting for debugger")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		/* One debugger at a time, the target has a single debug context */
		t.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("debugger attached")
		err = t.run(ctx, conn)
		conn.Close()

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			t.log.Info().Msg("debugger detached")
		default:
			t.log.Warn().Err(err).Msg("debug link failed")
		}
	}
}

func (t *target) serveSerial(ctx context.Context, dev string, baud int) error {
	port, err := term.Open(dev, term.Speed(baud), term.RawMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", dev, err)
	}
	defer port.Close()

	t.log.Info().Str("device", dev).Int("baud", baud).Msg("serial link open")
	if err := t.run(ctx, port); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func serveMetrics(ctx context.Context, ln net.Listener, reg *prometheus.Registry, log zerolog.Logger) {
	srv := &http.Server{
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func serve(ctx context.Context, cfg serveConfig) error {
	log := newLogger(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	t, err := newTarget(cfg, log, reg)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.MetricsAddr, err)
		}
		serveMetrics(ctx, ln, reg, log)
	}

	if cfg.Serial != "" {
		return t.serveSerial(ctx, cfg.Serial, cfg.Baud)
	}
	return t.serveTCP(ctx, cfg.Listen)
}
