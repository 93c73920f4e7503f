package kv

import (
	"github.com/scalaris-team/scalaris-go/cmd/util"
	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/scalaris-team/scalaris-go/rpc/client"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	rpcConn  transport.IConnection
	rpcStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(readCmd)
	KeyValueCommands.AddCommand(writeCmd)
	KeyValueCommands.AddCommand(tasCmd)
	KeyValueCommands.AddCommand(addOnNrCmd)
	KeyValueCommands.AddCommand(addDelOnListCmd)
	KeyValueCommands.AddCommand(nopCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects to the node and initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration
	config := util.GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	conn, err := util.OpenConnection(*config)
	if err != nil {
		return err
	}

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}
	rpcConn = conn

	return nil
}

// closeKVClient releases the connection opened by setupKVClient
func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcConn == nil {
		return nil
	}
	return rpcConn.Close()
}
