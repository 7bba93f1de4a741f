package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	gdbstub "github.com/BertoldVdb/go-gdbstub"
)

type serveConfig struct {
	Listen        string
	Serial        string
	Baud          int
	MaxPacketSize int
	MetricsAddr   string
	LogLevel      string
	InitialPC     uint64
}

// gdbstub config.toml keys.
type fileConfig struct {
	Listen        string `toml:"listen"`
	Serial        string `toml:"serial"`
	Baud          int    `toml:"baud"`
	MaxPacketSize int    `toml:"max_packet_size"`
	MetricsAddr   string `toml:"metrics_addr"`
	LogLevel      string `toml:"log_level"`
	InitialPC     uint64 `toml:"initial_pc"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Listen:        "127.0.0.1:2159",
		Baud:          115200,
		MaxPacketSize: gdbstub.DefaultMaxPacketSize,
		LogLevel:      "info",
		InitialPC:     0x40000400,
	}
}

func loadConfig(path string) (serveConfig, error) {
	cfg := defaultServeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serveConfig{}, fmt.Errorf("load gdbstub config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serveConfig{}, fmt.Errorf("load gdbstub config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("serial") {
		cfg.Serial = strings.TrimSpace(raw.Serial)
		/* A serial line replaces the default listener unless both are given */
		if !meta.IsDefined("listen") {
			cfg.Listen = ""
		}
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("max_packet_size") {
		cfg.MaxPacketSize = raw.MaxPacketSize
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("initial_pc") {
		cfg.InitialPC = raw.InitialPC
	}

	if err := cfg.validate(); err != nil {
		return serveConfig{}, fmt.Errorf("load gdbstub config: %w", err)
	}
	return cfg, nil
}

func (c serveConfig) validate() error {
	switch {
	case c.Listen == "" && c.Serial == "":
		return fmt.Errorf("one of listen or serial is required")
	case c.Listen != "" && c.Serial != "":
		return fmt.Errorf("listen and serial are mutually exclusive")
	case c.Serial != "" && c.Baud <= 0:
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	case c.MaxPacketSize < 4:
		return fmt.Errorf("max_packet_size %d too small", c.MaxPacketSize)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
