package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnosek/mtrpc/pkg/amqptransport"
	"github.com/gnosek/mtrpc/pkg/mtrpcconfig"
	"github.com/gnosek/mtrpc/pkg/rpcclient"
)

// callCmd, unlike list and help, dials the broker: it invokes an
// arbitrary procedure through pkg/rpcclient, the way a real mtrpc
// client would.
var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Invoke a procedure on a running server over AMQP",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCall,
}

func init() {
	callCmd.Flags().String("exchange", "", "exchange to publish the request to (defaults to the first configured binding's)")
	callCmd.Flags().String("routing-key", "", "routing key to publish the request with (defaults to the first configured binding's)")
	callCmd.Flags().Duration("timeout", 10*time.Second, "how long to wait for a reply")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := mtrpcconfig.Load(configPath)
	if err != nil {
		return err
	}
	initLogFromFlags(cmd, string(cfg.LoggingSettings.Level), cfg.LoggingSettings.JSONOutput)

	exchange, _ := cmd.Flags().GetString("exchange")
	routingKey, _ := cmd.Flags().GetString("routing-key")
	if exchange == "" || routingKey == "" {
		if len(cfg.Bindings) == 0 {
			return fmt.Errorf("no bindings configured and neither --exchange nor --routing-key was given")
		}
		if exchange == "" {
			exchange = cfg.Bindings[0].Exchange
		}
		if routingKey == "" {
			routingKey = cfg.Bindings[0].RoutingKey
		}
	}

	var params []any
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			return fmt.Errorf("params-json must be a JSON array: %w", err)
		}
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	retrier := &amqptransport.Retrier{MaxAttempts: 1}
	conn, err := amqptransport.Dial(ctx, cfg.AMQPParams.URL, 0, retrier)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	client, err := rpcclient.Dial(ctx, conn, exchange, routingKey)
	if err != nil {
		return fmt.Errorf("connect client: %w", err)
	}

	result, err := client.Call(ctx, args[0], params, nil)
	if err != nil {
		return err
	}
	fmt.Println(string(result))
	return nil
}
