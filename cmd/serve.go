package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/dashboard"
	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/monitoring"
	"github.com/sells-group/empresas-cli/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive dashboard over an integrated dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		if input == "" {
			input = filepath.Join(cfg.Paths.Processed, pipeline.FileIntegratedCSV)
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}
		interval, _ := cmd.Flags().GetDuration("check-interval")

		tables, err := loadReference(cfg.Reference.File)
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, tables, nil)
		if err != nil {
			return err
		}
		source := func(ctx context.Context) (*model.Dataset, error) {
			return loadDataset(ctx, p, input)
		}

		ds, err := source(ctx)
		if err != nil {
			return err
		}
		srv := dashboard.NewServer(ds)

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(func(ctx context.Context) (*model.Dataset, error) {
				ds, err := source(ctx)
				if err != nil {
					return nil, err
				}
				srv.SetDataset(ds)
				return ds, nil
			}, monitoring.NewAlerter(cfg.Monitoring), monitoring.ThresholdsFrom(cfg.Monitoring), interval)
			go checker.Run(ctx)
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutCtx)
		}()

		zap.L().Info("dashboard server starting",
			zap.Int("port", port),
			zap.String("input", input),
			zap.Int("companies", ds.Len()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

// loadDataset reads an integrated file back into a dataset.
func loadDataset(ctx context.Context, p *pipeline.Pipeline, input string) (*model.Dataset, error) {
	t, err := p.Load(ctx, input)
	if err != nil {
		return nil, err
	}
	return model.DatasetFromTable(t), nil
}

func init() {
	serveCmd.Flags().String("input", "", "integrated dataset to serve (default paths.processed/datos_integrados.csv)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	serveCmd.Flags().Duration("check-interval", 5*time.Minute, "how often the alert checker reloads the dataset")
	rootCmd.AddCommand(serveCmd)
}
