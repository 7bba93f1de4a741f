package gdbstub

import (
	"bufio"
	"io"
)

// Transport is the character link to the debugger. ReadByte blocks until a
// byte arrives; an error is the only way to abandon a blocked read.
type Transport interface {
	io.ByteReader
	io.ByteWriter
}

type flusher interface {
	Flush() error
}

// StreamTransport adapts a byte stream such as a net.Conn or a serial port.
type StreamTransport struct {
	rw *bufio.ReadWriter
}

func NewStreamTransport(rw io.ReadWriter) *StreamTransport {
	return &StreamTransport{
		rw: bufio.NewReadWriter(bufio.NewReader(rw), bufio.NewWriter(rw)),
	}
}

func (s *StreamTransport) ReadByte() (byte, error) {
	return s.rw.ReadByte()
}

func (s *StreamTransport) WriteByte(c byte) error {
	return s.rw.WriteByte(c)
}

func (s *StreamTransport) Flush() error {
	return s.rw.Flush()
}

// ByteFuncs adapts raw get/put primitives, as provided by a debug UART driver.
type ByteFuncs struct {
	Get func() byte
	Put func(byte)
}

func (b ByteFuncs) ReadByte() (byte, error) {
	return b.Get(), nil
}

func (b ByteFuncs) WriteByte(c byte) error {
	b.Put(c)
	return nil
}

func (g *Stub) getChar() (byte, error) {
	return g.conn.ReadByte()
}

func (g *Stub) putChar(c byte) error {
	return g.conn.WriteByte(c)
}

func (g *Stub) flush() error {
	if f, ok := g.conn.(flusher); ok {
		return f.Flush()
	}
	return nil
}
