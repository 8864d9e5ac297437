package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/histdb"
	"github.com/Snider/Fabric/internal/identity"
	"github.com/Snider/Fabric/internal/peersvc"
	"github.com/Snider/Fabric/internal/quota"
	"github.com/Snider/Fabric/internal/scheduler"
	"github.com/Snider/Fabric/internal/wire"
	"github.com/Snider/Fabric/internal/wireclient"
	"github.com/spf13/cobra"
)

var (
	peerListen        string
	peerIdentity       string
	peerTrackerAddr    string
	peerHeartbeat      string
	peerDiscipline     string
	peerCacheCapacity  int
	peerCacheTTL       string
	peerHistoryCap     int
	peerHistoryMirror  bool
	peerHistoryDBPath  string
	peerMaxCPUTasks    int
	peerMaxStorageMB   int64

	submitTarget   string
	submitFunction string
	submitArgs     string
	submitPriority int

	statusTarget string
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Run and drive a peer node",
}

var peerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a peer node and serve the wire protocol over TCP",
	RunE: func(cmd *cobra.Command, args []string) error {
		id := peerIdentity
		if id == "" {
			path, err := identity.DefaultPath()
			if err != nil {
				return fmt.Errorf("resolving default identity path: %w", err)
			}
			id, err = identity.LoadOrCreate(path)
			if err != nil {
				return fmt.Errorf("loading peer identity: %w", err)
			}
		}

		heartbeat, err := parseDurationFlag(peerHeartbeat, peersvc.DefaultHeartbeatInterval)
		if err != nil {
			return fmt.Errorf("invalid --heartbeat: %w", err)
		}
		cacheTTL, err := parseDurationFlag(peerCacheTTL, 0)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		discipline, err := parseDiscipline(peerDiscipline)
		if err != nil {
			return err
		}

		limits := quota.DefaultLimits()
		if peerMaxCPUTasks > 0 {
			limits.MaxCPUTasks = peerMaxCPUTasks
		}
		if peerMaxStorageMB > 0 {
			limits.MaxStorageBytes = peerMaxStorageMB << 20
		}

		log := fablog.GetGlobal()
		p := peersvc.New(peersvc.Config{
			Identity:          id,
			Address:           peerListen,
			TrackerAddress:    peerTrackerAddr,
			HeartbeatInterval: heartbeat,
			Discipline:        discipline,
			Quota:             limits,
			CacheCapacity:     peerCacheCapacity,
			CacheTTL:          cacheTTL,
			HistoryCapacity:   peerHistoryCap,
			Resources:         map[string]int64{"cpu_slots": 4, "memory_units": 1024},
		}, log)

		if peerHistoryMirror {
			hcfg := histdb.DefaultConfig()
			hcfg.Enabled = true
			if peerHistoryDBPath != "" {
				hcfg.Path = peerHistoryDBPath
			}
			store, err := histdb.Open(hcfg)
			if err != nil {
				return fmt.Errorf("opening history mirror: %w", err)
			}
			p.HistoryMirror = store
			defer store.Close()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("registering with tracker %s: %w", peerTrackerAddr, err)
		}
		defer p.Stop()

		srv, err := peersvc.NewServer(p, peerListen, peersvc.DefaultConnectionCap)
		if err != nil {
			return fmt.Errorf("failed to bind %s: %w", peerListen, err)
		}

		go func() {
			if err := srv.Serve(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "peer serve error: %v\n", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		fmt.Printf("Peer %s listening on %s (tracker: %s)\n", id, srv.Addr(), peerTrackerAddr)

		select {
		case <-sigChan:
			fmt.Println("\nReceived shutdown signal, stopping peer...")
		case <-ctx.Done():
		}
		cancel()
		srv.Close()
		return nil
	},
}

var peerSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a CPU_TASK to a peer and print its result",
	RunE: func(cmd *cobra.Command, args []string) error {
		var decodedArgs interface{}
		if submitArgs != "" {
			if err := json.Unmarshal([]byte(submitArgs), &decodedArgs); err != nil {
				return fmt.Errorf("invalid --args (expected JSON): %w", err)
			}
		}
		req, err := wire.NewRequest(wire.TypeCPUTask, peersvc.CPUTaskRequest{
			Function: submitFunction,
			Args:     decodedArgs,
			Priority: submitPriority,
		})
		if err != nil {
			return err
		}
		resp, err := wireclient.Call(context.Background(), submitTarget, req)
		if err != nil {
			return fmt.Errorf("calling %s: %w", submitTarget, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
		var out peersvc.CPUResultResponse
		if err := resp.Decode(&out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var peerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a peer's composite STATUS snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := wire.NewRequest(wire.TypeStatus, nil)
		if err != nil {
			return err
		}
		resp, err := wireclient.Call(context.Background(), statusTarget, req)
		if err != nil {
			return fmt.Errorf("calling %s: %w", statusTarget, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
		var out peersvc.StatusResponse
		if err := resp.Decode(&out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func parseDiscipline(s string) (scheduler.Discipline, error) {
	switch s {
	case "", "fcfs":
		return scheduler.FCFS, nil
	case "sjf":
		return scheduler.SJF, nil
	case "priority":
		return scheduler.Priority, nil
	case "round-robin", "rr":
		return scheduler.RoundRobin, nil
	default:
		return 0, fmt.Errorf("unknown --discipline %q (want fcfs|sjf|priority|round-robin)", s)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	peerServeCmd.Flags().StringVar(&peerListen, "listen", "0.0.0.0:8421", "address to listen on")
	peerServeCmd.Flags().StringVar(&peerIdentity, "identity", "", "peer identity (default: persisted UUID under the XDG data dir)")
	peerServeCmd.Flags().StringVar(&peerTrackerAddr, "tracker", "127.0.0.1:8420", "tracker address to register with")
	peerServeCmd.Flags().StringVar(&peerHeartbeat, "heartbeat", "", "UPDATE_LOAD interval (default 10s)")
	peerServeCmd.Flags().StringVar(&peerDiscipline, "discipline", "fcfs", "scheduler discipline: fcfs|sjf|priority|round-robin")
	peerServeCmd.Flags().IntVar(&peerCacheCapacity, "cache-capacity", 256, "result cache entry capacity")
	peerServeCmd.Flags().StringVar(&peerCacheTTL, "cache-ttl", "", "result cache entry TTL (default 1h)")
	peerServeCmd.Flags().IntVar(&peerHistoryCap, "history-capacity", 512, "in-memory task history ring buffer size")
	peerServeCmd.Flags().BoolVar(&peerHistoryMirror, "history-mirror", false, "also mirror task history into a sqlite database")
	peerServeCmd.Flags().StringVar(&peerHistoryDBPath, "history-db", "", "sqlite history mirror path (default: XDG data dir)")
	peerServeCmd.Flags().IntVar(&peerMaxCPUTasks, "max-cpu-tasks", 0, "quota: max CPU_TASK submissions per window (0: use default)")
	peerServeCmd.Flags().Int64Var(&peerMaxStorageMB, "max-storage-mb", 0, "quota: max stored file bytes in MB, PUT_FILE and UPLOAD_TO_PEER data together (0: use default)")

	peerSubmitCmd.Flags().StringVar(&submitTarget, "target", "127.0.0.1:8421", "peer address to submit the task to")
	peerSubmitCmd.Flags().StringVar(&submitFunction, "function", "", "registered function name to invoke")
	peerSubmitCmd.Flags().StringVar(&submitArgs, "args", "", "JSON-encoded function arguments")
	peerSubmitCmd.Flags().IntVar(&submitPriority, "priority", 0, "task priority (PRIORITY discipline only)")

	peerStatusCmd.Flags().StringVar(&statusTarget, "target", "127.0.0.1:8421", "peer address to query")

	peerCmd.AddCommand(peerServeCmd, peerSubmitCmd, peerStatusCmd)
	rootCmd.AddCommand(peerCmd)
}
