package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnosek/mtrpc/pkg/access"
	"github.com/gnosek/mtrpc/pkg/methodtree"
	"github.com/gnosek/mtrpc/pkg/mtrpcconfig"
)

// listCmd and helpCmd build the method tree the same way serve does and
// call system.list/system.help directly against it - no broker connection
// required, since introspection only needs the tree this process would
// build anyway.
var listCmd = &cobra.Command{
	Use:   "list [name]",
	Short: "List accessible descendant names under name (default: everything)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runIntrospection(cmd, args, "system.list") },
}

var helpCmd = &cobra.Command{
	Use:   "help [name]",
	Short: "Show help text for name and its descendants",
	Args:  cobra.MaximumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runIntrospection(cmd, args, "system.help") },
}

func init() {
	for _, c := range []*cobra.Command{listCmd, helpCmd} {
		c.Flags().Bool("deep", false, "include descendants, not just immediate children")
		c.Flags().String("key-pattern", "{full_name}", "access key template to evaluate as, as if this call arrived on a binding")
		c.Flags().String("keyhole-pattern", ".*", "access keyhole to evaluate against, as if this call arrived on a binding")
	}
}

func runIntrospection(cmd *cobra.Command, args []string, method string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := mtrpcconfig.Load(configPath)
	if err != nil {
		return err
	}
	initLogFromFlags(cmd, string(cfg.LoggingSettings.Level), cfg.LoggingSettings.JSONOutput)

	buildResult, err := buildTree(cfg)
	if err != nil {
		return err
	}

	proc, ok := buildResult.Tree.Procedure(method)
	if !ok {
		return fmt.Errorf("%s is not mounted in this tree", method)
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	deep, _ := cmd.Flags().GetBool("deep")
	keyPattern, _ := cmd.Flags().GetString("key-pattern")
	keyholePattern, _ := cmd.Flags().GetString("keyhole-pattern")

	call := &methodtree.Call{
		Params:               []json.RawMessage{mustMarshal(name), mustMarshal(deep), mustMarshal(true)},
		Access:               access.Context{FullName: method, Type: "procedure"},
		AccessKeyPattern:     keyPattern,
		AccessKeyholePattern: keyholePattern,
	}

	result, err := proc.Invoke(context.Background(), call)
	if err != nil {
		return err
	}
	text, _ := result.(string)
	fmt.Println(text)
	return nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
