package kv

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/spf13/cobra"
)

var (
	readCmd = &cobra.Command{
		Use:   "read [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := rpcStore.Read(key)
			if store.IsNotFound(err) {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			} else if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, value)
			return nil
		},
	}
	writeCmd = &cobra.Command{
		Use:   "write [key] [value]",
		Short: "Writes the value for a key",
		Long:  "Writes the value for a key. A value that is valid JSON is stored as JSON, every other value as string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Write(args[0], parseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("write successfully")
			return nil
		},
	}
	tasCmd = &cobra.Command{
		Use:   "tas [key] [old] [new]",
		Short: "Replaces the value for a key if it currently equals old",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := rpcStore.TestAndSet(args[0], parseValue(args[1]), parseValue(args[2]))
			var storeErr *store.Error
			if errors.As(err, &storeErr) && storeErr.Code == store.RetCKeyChanged {
				fmt.Printf("key changed, current value=%s\n", storeErr.Value)
				return nil
			} else if err != nil {
				return err
			}
			fmt.Println("test_and_set successfully")
			return nil
		},
	}
	addOnNrCmd = &cobra.Command{
		Use:   "add-on-nr [key] [number]",
		Short: "Adds a number to the number stored for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var number json.Number
			if err := json.Unmarshal([]byte(args[1]), &number); err != nil {
				return fmt.Errorf("number must be a JSON number: %w", err)
			}
			if err := rpcStore.AddOnNr(args[0], number); err != nil {
				return err
			}
			fmt.Println("add_on_nr successfully")
			return nil
		},
	}
	addDelOnListCmd = &cobra.Command{
		Use:   "add-del-on-list [key] [to-add] [to-remove]",
		Short: "Adds and removes elements of the list stored for a key",
		Long:  "Adds and removes elements of the list stored for a key. Both lists are given as JSON arrays, e.g. '[\"a\",1]'.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			toAdd, err := parseList(args[1])
			if err != nil {
				return fmt.Errorf("to-add must be a JSON array: %w", err)
			}
			toRemove, err := parseList(args[2])
			if err != nil {
				return fmt.Errorf("to-remove must be a JSON array: %w", err)
			}
			if err := rpcStore.AddDelOnList(args[0], toAdd, toRemove); err != nil {
				return err
			}
			fmt.Println("add_del_on_list successfully")
			return nil
		},
	}
	nopCmd = &cobra.Command{
		Use:   "nop [value]",
		Short: "Sends a value to the node without touching any key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Nop(parseValue(args[0])); err != nil {
				return err
			}
			fmt.Println("nop successfully")
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseValue returns arg as JSON value if it is valid JSON, otherwise as string
func parseValue(arg string) any {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

// parseList parses a JSON array
func parseList(arg string) ([]any, error) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(arg), &list); err != nil {
		return nil, err
	}
	values := make([]any, len(list))
	for i, v := range list {
		values[i] = v
	}
	return values, nil
}
