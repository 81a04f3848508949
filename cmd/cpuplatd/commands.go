package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"cpuplatd/internal/config"
	"cpuplatd/internal/httpapi"
	"cpuplatd/internal/numa"
	"cpuplatd/internal/platform"
)

const version = "0.1.0"

func newTopologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Print the NUMA nodes and logical CPUs available to this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := numa.Discover()
			if err != nil {
				return err
			}
			return printJSON(cmd, topo)
		},
	}
}

func newResolveCmd() *cobra.Command {
	var (
		cfgPath  string
		applyEnv bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a runtime configuration for the cpu backend",
		Long: "Loads a runtime configuration, rewrites it into a state the cpu " +
			"backend can execute, and prints the result. With --apply-env the " +
			"process-wide worker environment is published as well; that side " +
			"effect must happen before any worker is spawned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				var err error
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return err
				}
			}
			rep, err := platform.Resolve(cfg)
			if err != nil {
				return err
			}
			if applyEnv {
				platform.ApplyEnv(cfg)
			}
			return printJSON(cmd, httpapi.ResolveResponse{Config: cfg, Corrections: rep.Corrections})
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Runtime configuration file (yaml/json/toml)")
	cmd.Flags().BoolVar(&applyEnv, "apply-env", false, "Publish worker environment variables after resolving")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the introspection HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := &http.Server{Addr: addr, Handler: httpapi.NewMux()}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-stop:
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8311", "HTTP listen address")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cpuplatd %s %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
