package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnosek/mtrpc/pkg/amqptransport"
	"github.com/gnosek/mtrpc/pkg/log"
	"github.com/gnosek/mtrpc/pkg/manager"
	"github.com/gnosek/mtrpc/pkg/metrics"
	"github.com/gnosek/mtrpc/pkg/mtrpcconfig"
	"github.com/gnosek/mtrpc/pkg/responder"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the manager and responder actors until TERM/HUP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "address to serve /metrics on")
}

// runServe implements the signal contract: TERM stops the actors and
// exits; HUP stops them, rebuilds the method tree and reconnects, then
// resumes - the outer loop here is the "restart" action.
func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := mtrpcconfig.Load(configPath)
	if err != nil {
		return err
	}
	initLogFromFlags(cmd, string(cfg.LoggingSettings.Level), cfg.LoggingSettings.JSONOutput)

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Logger.Error().Err(err).Msg("metrics server exited")
		}
	}()
	log.Logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

	for {
		restart, err := runOneGeneration(cfg, sigCh)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
		log.Logger.Info().Msg("received SIGHUP, reconfiguring and restarting")
		cfg, err = mtrpcconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
	}
}

// runOneGeneration runs the manager and responder against cfg until a
// signal arrives, returning true if the caller should rebuild and restart
// (SIGHUP) or false if it should exit (SIGTERM/interrupt).
func runOneGeneration(cfg *mtrpcconfig.Config, sigCh chan os.Signal) (bool, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buildResult, err := buildTree(cfg)
	if err != nil {
		return false, err
	}
	for _, w := range buildResult.Warnings {
		log.Logger.Warn().Str("component", "methodtree").Msg(w)
	}

	managerRetrier := &amqptransport.Retrier{
		MaxAttempts: cfg.ManagerAttributes.MaxReconnectAttempts,
		Delay:       time.Duration(cfg.ManagerAttributes.ReconnectDelaySec) * time.Second,
		Logger:      log.WithComponent("manager"),
	}
	managerConn, err := amqptransport.Dial(ctx, cfg.AMQPParams.URL, cfg.AMQPParams.Prefetch, managerRetrier)
	if err != nil {
		return false, fmt.Errorf("dial manager connection: %w", err)
	}
	defer managerConn.Close()

	for name, kind := range cfg.ExchangeTypes {
		if err := managerConn.DeclareExchange(name, kind); err != nil {
			return false, fmt.Errorf("declare exchange %q: %w", name, err)
		}
	}

	responderRetrier := &amqptransport.Retrier{
		MaxAttempts: cfg.ResponderAttrs.MaxReconnectAttempts,
		Delay:       time.Duration(cfg.ResponderAttrs.ReconnectDelaySec) * time.Second,
		Logger:      log.WithComponent("responder"),
	}
	responderConn, err := amqptransport.Dial(ctx, cfg.AMQPParams.URL, 0, responderRetrier)
	if err != nil {
		return false, fmt.Errorf("dial responder connection: %w", err)
	}
	defer responderConn.Close()

	if err := responderConn.DeclareExchange(cfg.ResponderAttrs.ResponseExchange, "direct"); err != nil {
		return false, fmt.Errorf("declare response exchange: %w", err)
	}

	cp := responder.NewControlPlane(cfg.ResponderAttrs.QueueSize)
	resp := responder.New(cp, responderConn)

	mgr, err := manager.New(buildResult.Tree, cp, managerConn, cfg.Bindings, cfg.ResponderAttrs.ResponseExchange)
	if err != nil {
		return false, fmt.Errorf("create manager: %w", err)
	}
	defer mgr.Close()

	respDone := make(chan struct{})
	go func() {
		resp.Run(ctx)
		close(respDone)
	}()

	mgrDone := make(chan error, 1)
	go func() { mgrDone <- mgr.Run(ctx) }()

	restart := false
	select {
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
		restart = sig == syscall.SIGHUP
		mgr.Stop(&responder.StopSentinel{Reason: sig.String(), Severity: "info", Force: false})
	case err := <-mgrDone:
		if err != nil {
			log.Logger.Error().Err(err).Msg("manager exited with error")
		}
	}

	cancel()
	<-respDone
	return restart, nil
}
