package base

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/scalaris-team/scalaris-go/rpc/common"
)

func TestProcessResult(t *testing.T) {
	tests := []struct {
		name      string
		response  common.Response
		expected  string
		checkFunc func(t *testing.T, err error)
	}{
		{
			name:     "Result",
			response: common.Response{Result: json.RawMessage(`{"a": [1, 2]}`)},
			expected: `{"a": [1, 2]}`,
		},
		{
			name:     "NullResult",
			response: common.Response{Result: json.RawMessage(`null`), Error: json.RawMessage(`null`)},
			expected: `null`,
		},
		{
			name:     "ErrorWins",
			response: common.Response{Result: json.RawMessage(`1`), Error: json.RawMessage(`{"code":-1,"message":"failed"}`)},
			checkFunc: func(t *testing.T, err error) {
				var re *common.RemoteError
				if !errors.As(err, &re) {
					t.Fatalf("Expected RemoteError, got %T: %v", err, err)
				}
				if re.Code != -1 || re.Message != "failed" {
					t.Errorf("Unexpected remote error %+v", re)
				}
			},
		},
		{
			name:     "MissingResult",
			response: common.Response{ID: json.RawMessage(`1`)},
			checkFunc: func(t *testing.T, err error) {
				var pe *common.ProtocolError
				if !errors.As(err, &pe) || pe.Reason != common.ReasonMissingResult {
					t.Fatalf("Expected missing result, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ProcessResult(tt.response)
			if tt.checkFunc != nil {
				if result != nil {
					t.Errorf("Expected no result, got %s", result)
				}
				tt.checkFunc(t, err)
				return
			}
			if err != nil {
				t.Fatalf("ProcessResult failed: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("ProcessResult = %s, expected %s", result, tt.expected)
			}
		})
	}
}

func TestDecodeRemoteError(t *testing.T) {
	tests := []struct {
		raw     string
		code    int
		message string
		data    string
	}{
		{raw: `{"code":-32601,"message":"method not found"}`, code: -32601, message: "method not found"},
		{raw: `{"code":1,"message":"abort","data":{"key":"k"}}`, code: 1, message: "abort", data: `{"key":"k"}`},
		{raw: `"unknown_key"`, message: "unknown_key"},
		{raw: `[1,2]`, message: "[1,2]"},
	}

	for _, tt := range tests {
		re := decodeRemoteError(json.RawMessage(tt.raw))
		if re.Code != tt.code || re.Message != tt.message || string(re.Data) != tt.data {
			t.Errorf("decodeRemoteError(%s) = %+v", tt.raw, re)
		}
	}
}

func TestMatchesID(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{`7`, true},
		{`"7"`, true},
		{`8`, false},
		{`"seven"`, false},
		{`7.0`, false},
		{`{"id":7}`, false},
	}

	for _, tt := range tests {
		if got := matchesID(json.RawMessage(tt.raw), 7); got != tt.expected {
			t.Errorf("matchesID(%s, 7) = %t, expected %t", tt.raw, got, tt.expected)
		}
	}
}

func TestWriteFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"nop","params":[],"id":1}`)
	go func() {
		_ = writeFrame(client, "node:8443", "jsonrpc.yaws", body)
	}()

	req, err := http.ReadRequest(bufio.NewReader(server))
	if err != nil {
		t.Fatalf("Failed to parse request: %v", err)
	}
	if req.Method != http.MethodPost || req.URL.Path != "/jsonrpc.yaws" {
		t.Errorf("Unexpected request line %s %s", req.Method, req.URL.Path)
	}
	if req.Host != "node:8443" {
		t.Errorf("Unexpected host %q", req.Host)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Unexpected content type %q", req.Header.Get("Content-Type"))
	}
	if req.ContentLength != int64(len(body)) || req.Close {
		t.Errorf("Unexpected framing: length=%d close=%t", req.ContentLength, req.Close)
	}
	got, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Body = %s, expected %s", got, body)
	}
}

func TestReadFrame(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		stream := "HTTP/1.1 200 OK\r\nContent-Length: 11\r\n\r\n{\"result\":1}" +
			"HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\n{}"
		rec := &errRecorder{r: strings.NewReader(stream)}
		reader := bufio.NewReader(rec)

		frame, err := readFrame(reader, rec)
		if err != nil {
			t.Fatalf("readFrame failed: %v", err)
		}
		if frame.status != 200 || !frame.keepAlive || string(frame.body) != `{"result":1` {
			t.Errorf("Unexpected first frame %+v (%s)", frame, frame.body)
		}

		// The rest of the first body is garbage before the second status line
		_, err = readFrame(reader, rec)
		var frameErr *frameError
		if !errors.As(err, &frameErr) {
			t.Fatalf("Expected frameError, got %T: %v", err, err)
		}
	})

	t.Run("ConnectionClose", func(t *testing.T) {
		stream := "HTTP/1.1 500 Internal Server Error\r\nConnection: close\r\nContent-Length: 2\r\n\r\n{}"
		rec := &errRecorder{r: strings.NewReader(stream)}

		frame, err := readFrame(bufio.NewReader(rec), rec)
		if err != nil {
			t.Fatalf("readFrame failed: %v", err)
		}
		if frame.status != 500 || frame.keepAlive {
			t.Errorf("Unexpected frame %+v", frame)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		stream := "HTTP/1.1 200 OK\r\nContent-Length: 50\r\n\r\n{\"result\":"
		rec := &errRecorder{r: strings.NewReader(stream)}

		_, err := readFrame(bufio.NewReader(rec), rec)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("Expected io.ErrUnexpectedEOF, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		rec := &errRecorder{r: strings.NewReader("")}

		_, err := readFrame(bufio.NewReader(rec), rec)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("Expected io.ErrUnexpectedEOF, got %v", err)
		}
	})

	t.Run("NotHTTP", func(t *testing.T) {
		rec := &errRecorder{r: strings.NewReader("{\"result\":1}\r\n\r\n")}

		_, err := readFrame(bufio.NewReader(rec), rec)
		var frameErr *frameError
		if !errors.As(err, &frameErr) {
			t.Fatalf("Expected frameError, got %T: %v", err, err)
		}
	})
}
