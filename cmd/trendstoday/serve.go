package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pevans/trendstoday/analytics"
	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/monetization"
	"github.com/pevans/trendstoday/newsletter"
	"github.com/pevans/trendstoday/research"
	"github.com/pevans/trendstoday/site"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and its APIs",
		Long: `Serve the content API, RSS and sitemaps, plus the newsletter,
monetization, analytics and research endpoints. With content.watch set the
posts are kept in memory and reloaded when the content directory changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// router builds the full site router. The returned close function releases
// the stores.
func (a *app) router(ctx context.Context) (*gin.Engine, func(), error) {
	loader := a.loader()
	var source content.Source = loader
	if a.cfg.Content.Watch {
		// Build up front so a broken content tree fails startup. Watch then
		// only rebuilds on changes.
		index := content.NewIndex(loader)
		if err := index.Refresh(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to build content index: %w", err)
		}
		go func() {
			if err := index.Watch(ctx); err != nil {
				a.log.Error("content watch stopped", "error", err)
			}
		}()
		source = index
	}

	subscribers, err := a.subscriberStore()
	if err != nil {
		return nil, nil, err
	}
	revenue, err := a.monetizationStore()
	if err != nil {
		subscribers.Close()
		return nil, nil, err
	}
	closeStores := func() {
		if err := subscribers.Close(); err != nil {
			a.log.Warn("failed to close subscriber store", "error", err)
		}
		if err := revenue.Close(); err != nil {
			a.log.Warn("failed to close monetization store", "error", err)
		}
	}

	siteAPI := site.NewAPIServer(source, site.Options{
		SiteURL:  a.cfg.SiteURL(),
		PageSize: a.cfg.Content.PageSize,
		Logger:   a.log,
	})
	router := siteAPI.SetupRouter(
		newsletter.NewAPIServer(subscribers, a.log),
		monetization.NewAPIServer(revenue, a.log, strings.HasPrefix(a.cfg.SiteURL(), "https://")),
		analytics.NewAPIServer(analytics.NewBuilder(source, a.cfg.Data.Dir, a.cfg.Data.ReportsDir, nil, a.log)),
		research.NewAPIServer(research.Options{
			FirecrawlAPIKey:  a.cfg.Research.FirecrawlAPIKey,
			PerplexityAPIKey: a.cfg.Research.PerplexityAPIKey,
			Logger:           a.log,
		}),
	)
	return router, closeStores, nil
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	router, closeStores, err := a.router(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "addr", "http://"+a.cfg.Server.Addr, "content", a.cfg.Content.Dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
