package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mreide/reviewd/internal/config"
	"github.com/mreide/reviewd/internal/infra"
	"github.com/mreide/reviewd/internal/review"
	"github.com/mreide/reviewd/internal/server"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP review service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		if flagPort > 0 {
			cfg.Port = flagPort
		}

		log := infra.NewStdLogger()
		svc, err := review.NewService(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		router := server.NewRouter(server.NewHandlers(svc, log))
		srv := &http.Server{
			Handler:      router,
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Infof("starting server on :%d", cfg.Port)
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				log.Errorf("server error: %v", err)
				exitCode = ExitRuntimeError
			}
		case sig := <-stop:
			log.Infof("received %s, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Errorf("shutdown: %v", err)
				exitCode = ExitRuntimeError
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Port to listen on")
	addReviewFlags(serveCmd)
}
