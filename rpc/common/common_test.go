package common

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err   error
		class string
		fatal bool
	}{
		{nil, "none", false},
		{&TransportError{Reason: ReasonTimeout, Err: errors.New("i/o timeout")}, "transport_timeout", true},
		{fmt.Errorf("call failed: %w", &TransportError{Reason: ReasonShortRead}), "transport_shortRead", true},
		{&TLSError{Reason: "certificate rejected"}, "tls", true},
		{&ProtocolError{Reason: ReasonMissingResult}, "protocol_missingResult", false},
		{&RemoteError{Code: -32601, Message: "method not found"}, "remote", false},
		{ErrConnectionClosed, "closed", true},
		{ErrConnectionBusy, "busy", false},
		{errors.New("boom"), "other", false},
	}

	for _, tt := range tests {
		if got := ErrorClass(tt.err); got != tt.class {
			t.Errorf("ErrorClass(%v) = %s, expected %s", tt.err, got, tt.class)
		}
		if got := IsFatal(tt.err); got != tt.fatal {
			t.Errorf("IsFatal(%v) = %t, expected %t", tt.err, got, tt.fatal)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"":        logger.WARNING,
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for input, expected := range tests {
		level, err := ParseLogLevel(input)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", input, err)
		}
		if level != expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", input, level, expected)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("Expected error for unknown log level")
	}
	if err := InitLoggers("chatty"); err == nil {
		t.Error("InitLoggers should reject an unknown log level")
	}
}

func TestClientConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config := ClientConfig{Hostname: "localhost"}
		if config.GetLink() != DefaultLink {
			t.Errorf("GetLink() = %s, expected %s", config.GetLink(), DefaultLink)
		}
		if config.GetPort(DefaultSSLPort) != DefaultSSLPort {
			t.Errorf("GetPort() = %d, expected %d", config.GetPort(DefaultSSLPort), DefaultSSLPort)
		}

		config.Link = "/api/jsonrpc.yaws"
		config.Port = 28000
		if config.GetLink() != "api/jsonrpc.yaws" {
			t.Errorf("GetLink() = %s", config.GetLink())
		}
		if config.GetPort(DefaultSSLPort) != 28000 {
			t.Errorf("GetPort() = %d, expected 28000", config.GetPort(DefaultSSLPort))
		}
	})

	t.Run("Validate", func(t *testing.T) {
		invalid := []ClientConfig{
			{},
			{Hostname: "  "},
			{Hostname: "localhost", Port: 70000},
			{Hostname: "localhost", TimeoutSecond: -1},
			{Hostname: "localhost", TLS: ClientTLSConfig{CertFile: "client.pem"}},
			{Hostname: "localhost", Link: "jsonrpc.yaws HTTP/1.0"},
			{Hostname: "localhost", Link: "jsonrpc.yaws\r\nX-Injected: 1"},
			{Hostname: "localhost", Link: "json\x00rpc"},
			{Hostname: "node\r\nX-Injected: 1"},
		}
		for _, config := range invalid {
			if err := config.Validate(); err == nil {
				t.Errorf("Expected validation error for %+v", config)
			}
		}

		valid := ClientConfig{Hostname: "localhost", TLS: ClientTLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}}
		if err := valid.Validate(); err != nil {
			t.Errorf("Unexpected validation error: %v", err)
		}
	})

	t.Run("String", func(t *testing.T) {
		config := ClientConfig{Hostname: "node1", TimeoutSecond: 5, LogLevel: "info"}
		out := config.String()
		for _, expected := range []string{"CLIENT CONFIGURATION", "node1", "default", DefaultLink, "5 sec", "system roots"} {
			if !strings.Contains(out, expected) {
				t.Errorf("String() does not contain %q:\n%s", expected, out)
			}
		}
	})
}

func TestRecordCall(t *testing.T) {
	RecordCall("test", "ping", time.Now(), nil)
	RecordCall("test", "ping", time.Now(), &RemoteError{Message: "failed"})
	RecordConnect("test", nil)

	var buf bytes.Buffer
	WriteMetrics(&buf)
	out := buf.String()
	for _, expected := range []string{
		`scalaris_rpc_calls_total{transport="test",method="ping"} 2`,
		`scalaris_rpc_call_errors_total{transport="test",class="remote"} 1`,
		`scalaris_rpc_connects_total{transport="test"} 1`,
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Metrics do not contain %q", expected)
		}
	}
}

func TestIsNull(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{`null`, true},
		{" \t\r\nnull\n", true},
		{``, false},
		{`"null"`, false},
		{`nullx`, false},
		{`{}`, false},
	}

	for _, tt := range tests {
		if got := IsNull([]byte(tt.raw)); got != tt.expected {
			t.Errorf("IsNull(%q) = %t, expected %t", tt.raw, got, tt.expected)
		}
	}
}
