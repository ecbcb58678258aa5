package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/config"
	"cluster-dashboard-go/db"
	"cluster-dashboard-go/handlers"
	"cluster-dashboard-go/logging"
	"cluster-dashboard-go/models"
	"cluster-dashboard-go/orchestrator"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything both commands build from the configuration.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	generator    *cluster.Generator
	orchestrator *orchestrator.Orchestrator
	closeStore   func() error
}

func newApp(ctx context.Context, configFile string, useRedis bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	rules := classify.DefaultRules
	if cfg.Rules.File != "" {
		if rules, err = classify.LoadRuleTable(cfg.Rules.File); err != nil {
			return nil, err
		}
	}
	logger.Info("Using rule table", zap.String("version", rules.Version))

	client := clustering.NewClient(clustering.Config{
		BaseURL:        cfg.Clustering.BaseURL,
		Timeout:        cfg.Clustering.Timeout,
		OfficialPath:   cfg.Clustering.OfficialPath,
		PlaygroundPath: cfg.Clustering.PlaygroundPath,
		PairwisePath:   cfg.Clustering.PairwisePath,
	}, logger)

	var store orchestrator.SlotStore = db.NewMemoryStore()
	closeStore := func() error { return nil }
	if useRedis && cfg.Redis.Enabled {
		rdb, err := db.NewRedisClient(ctx, db.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = db.NewRedisStore(rdb, cfg.Redis.KeyPrefix, logger)
		closeStore = rdb.Close
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		generator:    cluster.NewGenerator(rules),
		orchestrator: orchestrator.New(client, store, logger),
		closeStore:   closeStore,
	}, nil
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		a.logger.Warn("Failed to close slot store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// serveCmd runs the HTTP API.
func serveCmd() *cobra.Command {
	var (
		configFile string
		noPrefetch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		Long: `Run the dashboard API server.

Examples:
  # Serve with defaults (in-memory slots, service on 127.0.0.1:5000)
  cluster-dashboard serve

  # Serve with a config file
  cluster-dashboard serve --config=dashboard.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, configFile, true)
			if err != nil {
				return err
			}
			defer a.close()

			// The dashboard opens on the official run.
			if !noPrefetch {
				go func() {
					if _, err := a.orchestrator.Refresh(context.Background()); err != nil {
						a.logger.Warn("Initial official run failed", zap.Error(err))
					}
				}()
			}

			gin.SetMode(gin.ReleaseMode)
			h := handlers.NewAPIHandler(a.orchestrator, a.generator, a.logger)
			router := handlers.NewRouter(h)

			a.logger.Info("Starting server", zap.String("addr", a.cfg.Server.Addr))
			if err := router.Run(a.cfg.Server.Addr); err != nil {
				return fmt.Errorf("failed to run server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&noPrefetch, "no-prefetch", false, "Skip the official run at startup")
	return cmd
}

// inspectCmd runs one mode and prints the labelled clusters.
func inspectCmd() *cobra.Command {
	var (
		configFile string
		mode       string
		k          int
		x, y       string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run one clustering mode and print cluster labels and narratives",
		Long: `Run one clustering mode against the service and print what the
dashboard would show for each cluster.

Examples:
  # Official run
  cluster-dashboard inspect

  # Playground run with five clusters
  cluster-dashboard inspect --mode=playground --k=5

  # Pairwise run on sex against program
  cluster-dashboard inspect --mode=pairwise --x=sex --y=program --k=4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			a, err := newApp(ctx, configFile, false)
			if err != nil {
				return err
			}
			defer a.close()

			actions := []orchestrator.Action{orchestrator.SetMode{Mode: models.Mode(mode)}}
			if cmd.Flags().Changed("k") {
				actions = append(actions, orchestrator.SetK{K: k})
			}
			if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
				actions = append(actions, orchestrator.SetFeatures{X: x, Y: y})
			}
			state, res, err := a.orchestrator.Dispatch(ctx, actions...)
			if err == nil && res == nil {
				res, err = a.orchestrator.Run(ctx, state)
			}
			if err != nil {
				return err
			}
			printDataset(cmd.OutOrStdout(), res.Dataset, orchestrator.BuildViews(a.generator, res.Dataset))
			return nil
		},
	}

	def := orchestrator.DefaultViewState()
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&mode, "mode", string(def.Mode), "Analysis mode (official, playground, pairwise)")
	cmd.Flags().IntVar(&k, "k", def.K, fmt.Sprintf("Number of clusters (%d-%d)", orchestrator.MinK, orchestrator.MaxK))
	cmd.Flags().StringVar(&x, "x", def.XFeature, "Pairwise X feature ("+strings.Join(models.Features, ", ")+")")
	cmd.Flags().StringVar(&y, "y", def.YFeature, "Pairwise Y feature")
	return cmd
}

func printDataset(w io.Writer, ds *models.ClusterDataset, views []orchestrator.ClusterView) {
	if ds.Empty() {
		fmt.Fprintf(w, "%s run returned no clusters\n", ds.Mode)
		return
	}
	fmt.Fprintf(w, "%s run %s: k=%d, %s students, %s vs %s\n\n",
		ds.Mode, ds.RunID, ds.K, humanize.Comma(int64(len(ds.Points))), ds.XAxis.Name, ds.YAxis.Name)
	for _, v := range views {
		fmt.Fprintf(w, "[%d] %s\n", v.ID, v.Label)
		if v.Centroid != nil {
			fmt.Fprintf(w, "    centroid: (%.2f, %.2f)\n", v.Centroid.X, v.Centroid.Y)
		}
		fmt.Fprintf(w, "    %s\n", v.Narrative.Summary)
		if v.Narrative.Recommendation != "" {
			fmt.Fprintf(w, "    %s\n", v.Narrative.Recommendation)
		}
		fmt.Fprintln(w)
	}
}
