package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wetbench/labsim"
	httpAdapter "github.com/wetbench/labsim/internal/adapters/http"
	"github.com/wetbench/labsim/internal/logging"
	"github.com/wetbench/labsim/internal/observability"
	"github.com/wetbench/labsim/internal/presentation/tui"
	"github.com/wetbench/labsim/pkg/adapters/memory"
	redisAdapter "github.com/wetbench/labsim/pkg/adapters/redis"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/ports"
	"github.com/wetbench/labsim/pkg/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulation HTTP server",
	Long: `Starts the simulator in server mode, exposing a JSON API over HTTP.
Submitted runs are persisted in memory by default, or in Redis when
--redis is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		levelName, _ := cmd.Flags().GetString("log-level")

		level, err := trace.ParseLevel(levelName)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		logger := logging.New(slog.LevelInfo)

		var store ports.RunStore
		if redisAddr != "" {
			redisStore := redisAdapter.New(redisAddr, "", 0)
			defer redisStore.Close()
			store = redisStore
			logger.Info("using redis run store", "addr", redisAddr)
		} else {
			store = memory.NewStore()
		}

		sim := httpAdapter.SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
			return labsim.Simulate(ctx, bytes.NewReader(contents), fileName,
				labsim.WithLogLevel(level),
				labsim.WithLogger(logger),
			)
		})

		handler := httpAdapter.NewHandler(sim, store, observability.NewMetrics(), logger)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		tui.PrintBanner()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting labsim server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("labsim server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for run persistence (host:port)")
}
