package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/trackersvc"
	"github.com/spf13/cobra"
)

var (
	trackerListen      string
	trackerPeerTimeout string
	trackerStatePath   string
)

// trackerCmd groups the tracker-node subcommands.
var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Run and inspect a tracker (coordinator) node",
}

// trackerServeCmd represents "fabric tracker serve".
var trackerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a tracker node and serve the wire protocol over TCP",
	RunE: func(cmd *cobra.Command, args []string) error {
		peerTimeout, err := parseDurationFlag(trackerPeerTimeout, trackersvc.DefaultPeerTimeout)
		if err != nil {
			return fmt.Errorf("invalid --peer-timeout: %w", err)
		}
		cfg := trackersvc.DefaultConfig(trackerStatePath)
		cfg.PeerTimeout = peerTimeout

		log := fablog.GetGlobal()
		t, err := trackersvc.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to construct tracker: %w", err)
		}

		srv, err := trackersvc.NewServer(t, trackerListen, trackersvc.DefaultConnectionCap)
		if err != nil {
			return fmt.Errorf("failed to bind %s: %w", trackerListen, err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		t.Start()
		defer t.Stop()

		go func() {
			if err := srv.Serve(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "tracker serve error: %v\n", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		fmt.Printf("Tracker listening on %s (state: %s)\n", srv.Addr(), stateDisplay(trackerStatePath))

		select {
		case <-sigChan:
			fmt.Println("\nReceived shutdown signal, stopping tracker...")
		case <-ctx.Done():
		}
		cancel()
		srv.Close()
		return nil
	},
}

func stateDisplay(path string) string {
	if path == "" {
		return "none (ownership registry is in-memory only)"
	}
	return path
}

func init() {
	trackerServeCmd.Flags().StringVar(&trackerListen, "listen", "0.0.0.0:8420", "address to listen on")
	trackerServeCmd.Flags().StringVar(&trackerPeerTimeout, "peer-timeout", "30s", "how long a peer may go without a heartbeat before eviction")
	trackerServeCmd.Flags().StringVar(&trackerStatePath, "state", "owned_files.json", "path to persist the owned-file registry (empty disables persistence)")
	trackerCmd.AddCommand(trackerServeCmd)
	rootCmd.AddCommand(trackerCmd)
}
