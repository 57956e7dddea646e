package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/melih/dirg/internal/adapters/http"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP API with the status of the configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), a.v.GetString("serve.listen"))
		},
	}
	cmd.Flags().String("listen", ":3000", "address to listen on")
	a.v.BindPFlag("serve.listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	server := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Routes
	api := server.Group("/api")
	v1 := api.Group("/v1")
	http.NewServiceHandler(s.topology, s.ops).Register(v1)

	return a.listen(ctx, server, addr)
}

// listen serves until ctx is cancelled or the listener fails.
func (a *app) listen(ctx context.Context, server *fiber.App, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			log.WithError(err).Warn("Failed to shut the server down")
		}
	}()

	fmt.Fprintf(a.stdout, "Server starting on %s\n", addr)
	err := server.Listen(addr)
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
