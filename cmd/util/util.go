package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
	"github.com/scalaris-team/scalaris-go/rpc/transport/ssl"
	"github.com/scalaris-team/scalaris-go/rpc/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "hostname"
	cmd.PersistentFlags().String(key, "localhost", WrapString("The hostname of the Scalaris node"))

	key = "port"
	cmd.PersistentFlags().Uint(key, 0, WrapString(fmt.Sprintf("The port of the JSON-RPC endpoint (0 selects the default: %d for ssl, %d for tcp)", common.DefaultSSLPort, common.DefaultTCPPort)))

	key = "link"
	cmd.PersistentFlags().String(key, common.DefaultLink, WrapString("The path of the JSON-RPC endpoint"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client (0 disables the timeout)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The log level of the client (debug, info, warn, error)"))

	key = "tls-ca-file"
	cmd.PersistentFlags().String(key, "", WrapString("PEM file with the CA certificates to trust (default: system roots)"))

	key = "tls-server-name"
	cmd.PersistentFlags().String(key, "", WrapString("The name expected in the server certificate (default: hostname)"))

	key = "tls-cert-file"
	cmd.PersistentFlags().String(key, "", WrapString("PEM file with the client certificate"))

	key = "tls-key-file"
	cmd.PersistentFlags().String(key, "", WrapString("PEM file with the key of the client certificate"))

	key = "tls-pin"
	cmd.PersistentFlags().StringSlice(key, nil, WrapString("SHA-256 fingerprints of certificates accepted even if the chain can not be verified"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the connection"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the connection (in seconds, 0 disables keepalive)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("scalaris")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		Hostname:      viper.GetString("hostname"),
		Port:          viper.GetUint("port"),
		Link:          viper.GetString("link"),
		TimeoutSecond: viper.GetInt("timeout"),
		LogLevel:      viper.GetString("log-level"),
		TLS: common.ClientTLSConfig{
			CAFile:       viper.GetString("tls-ca-file"),
			ServerName:   viper.GetString("tls-server-name"),
			CertFile:     viper.GetString("tls-cert-file"),
			KeyFile:      viper.GetString("tls-key-file"),
			PinnedSHA256: viper.GetStringSlice("tls-pin"),
		},
		Transport: common.ClientTransportConfig{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		},
	}

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "jsoniter":
		return serializer.NewJSONIterSerializer(), nil
	case "gojson":
		return serializer.NewGoJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// OpenConnection opens a connection using the configured transport and serializer
func OpenConnection(config common.ClientConfig) (transport.IConnection, error) {
	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	switch viper.GetString("transport") {
	case "ssl":
		return ssl.DialSSL(ctx, config, s)
	case "tcp":
		return tcp.DialTCP(ctx, config, s)
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
