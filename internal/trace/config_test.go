package trace

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ProbeMethod != ProbeICMP {
		t.Errorf("ProbeMethod = %v, want %v", config.ProbeMethod, ProbeICMP)
	}
	if config.MaxHops != 30 {
		t.Errorf("MaxHops = %d, want 30", config.MaxHops)
	}
	if config.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", config.Timeout)
	}
	if config.DestPort != 80 {
		t.Errorf("DestPort = %d, want 80", config.DestPort)
	}
	if config.ListenWindow != 100*time.Millisecond {
		t.Errorf("ListenWindow = %v, want 100ms", config.ListenWindow)
	}
	if config.PayloadSize != 32 {
		t.Errorf("PayloadSize = %d, want 32", config.PayloadSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := *DefaultConfig()

	with := func(mod func(c *Config)) Config {
		c := valid
		mod(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "valid config",
			config:  valid,
			wantErr: nil,
		},
		{
			name:    "valid tcp config",
			config:  with(func(c *Config) { c.ProbeMethod = ProbeTCP; c.DestPort = 443 }),
			wantErr: nil,
		},
		{
			name:    "single hop",
			config:  with(func(c *Config) { c.MaxHops = 1 }),
			wantErr: nil,
		},
		{
			name:    "invalid max hops (0)",
			config:  with(func(c *Config) { c.MaxHops = 0 }),
			wantErr: ErrInvalidMaxHops,
		},
		{
			name:    "invalid max hops (>255)",
			config:  with(func(c *Config) { c.MaxHops = 256 }),
			wantErr: ErrInvalidMaxHops,
		},
		{
			name:    "invalid timeout",
			config:  with(func(c *Config) { c.Timeout = 0 }),
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative listen window",
			config:  with(func(c *Config) { c.ListenWindow = -time.Millisecond }),
			wantErr: ErrInvalidListenWindow,
		},
		{
			name:    "negative payload",
			config:  with(func(c *Config) { c.PayloadSize = -1 }),
			wantErr: ErrInvalidPayloadSize,
		},
		{
			name:    "oversized payload",
			config:  with(func(c *Config) { c.PayloadSize = MaxPayloadSize + 1 }),
			wantErr: ErrInvalidPayloadSize,
		},
		{
			name:    "invalid tcp port",
			config:  with(func(c *Config) { c.ProbeMethod = ProbeTCP; c.DestPort = 0 }),
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port ignored for icmp",
			config:  with(func(c *Config) { c.DestPort = 0 }),
			wantErr: nil,
		},
		{
			name:    "unknown method",
			config:  with(func(c *Config) { c.ProbeMethod = ProbeMethod(9) }),
			wantErr: ErrUnknownMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseProbeMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    ProbeMethod
		wantErr bool
	}{
		{"", ProbeICMP, false},
		{"icmp", ProbeICMP, false},
		{"tcp", ProbeTCP, false},
		{"udp", ProbeICMP, true},
	}

	for _, tt := range tests {
		got, err := ParseProbeMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProbeMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProbeMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProbeMethod_String(t *testing.T) {
	if ProbeICMP.String() != "icmp" || ProbeTCP.String() != "tcp" || ProbeMethod(9).String() != "unknown" {
		t.Error("unexpected ProbeMethod string")
	}
}
