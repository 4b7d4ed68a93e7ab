package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/example/attendance-engine/internal/application"
	apihttp "github.com/example/attendance-engine/internal/http"
	"github.com/example/attendance-engine/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API and Prometheus metrics.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"ATTENDANCE_HTTP_ADDR"}},
		},
		Action: func(c *cli.Context) error {
			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			services := apihttp.NewServices(env.deps,
				application.NewReportService(env.deps, env.cfg.Thresholds),
				application.NewImportService(env.deps, env.importOptions()),
			)
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.Handle("/", apihttp.NewAPI(services, env.logger))

			server := &http.Server{
				Addr:              c.String("addr"),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				env.logger.Info("api listening", "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-c.Context.Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			env.logger.Info("api shutting down")
			return server.Shutdown(ctx)
		},
	}
}
