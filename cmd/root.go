package cmd

import (
	"fmt"
	"os"

	"github.com/scalaris-team/scalaris-go/cmd/kv"
	"github.com/scalaris-team/scalaris-go/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "scalaris",
		Short: "client for the Scalaris key-value store",
		Long: fmt.Sprintf(`scalaris (v%s)

A client for the JSON-RPC API of Scalaris nodes, speaking JSON-RPC over
TLS (default) or plain TCP.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the scalaris client",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scalaris v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, jsoniter, gojson)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "ssl", util.WrapString("transport to use (ssl, tcp)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
