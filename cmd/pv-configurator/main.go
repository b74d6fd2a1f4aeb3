package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pv-configurator/config"
	"pv-configurator/internal/api"
	"pv-configurator/internal/logger"
	"pv-configurator/internal/mqtt"
	"pv-configurator/internal/recommend"
	"pv-configurator/internal/storage"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/sysconfig"
)

const shutdownTimeout = 10 * time.Second

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pv-configurator",
		Short:        "Photovoltaic system configurator",
		Long:         "Recommends PV modules, inverters and batteries for a project and validates its equipment configuration",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(stringingCmd())
	rootCmd.AddCommand(recommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file and the environment, then
// configures logging.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.Log.Format)
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*storage.Database, error) {
	db, err := storage.NewDatabase(cfg.Database.Driver, cfg.Database.Source())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Info("Database opened", "driver", cfg.Database.Driver)
	return db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the configurator API",
		Long:  "Start the HTTP API and the MQTT configuration publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				slog.Warn("MQTT connection failed, configuration events disabled", "error", err)
				publisher = mqtt.NewDisabledPublisher()
			}
			defer publisher.Close()

			engine := sysconfig.NewEngine(sysconfig.EngineConfig{
				Catalog:  db,
				Projects: db,
				Store:    db,
				Notifier: publisher,
			})

			if !cfg.API.Enabled {
				slog.Warn("API disabled, nothing to serve")
				return nil
			}

			server := api.NewServer(api.ServerConfig{
				Port:     cfg.API.Port,
				Ranker:   recommend.NewRanker(db, db),
				Engine:   engine,
				Database: db,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("API server error: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Stop(shutdownCtx)
			})

			slog.Info("PV configurator started. Press Ctrl+C to stop.")
			return g.Wait()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(); err != nil {
				return err
			}
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load catalog equipment and projects from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			seed, err := storage.LoadSeed(args[0])
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := seed.Apply(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d rows\n", n)
			return nil
		},
	}
}

func stringingCmd() *cobra.Command {
	var (
		maxDCVoltage float64
		voc          float64
		panels       int
		mppt         int
	)

	cmd := &cobra.Command{
		Use:   "stringing",
		Short: "Compute a string layout from raw electrical values",
		RunE: func(cmd *cobra.Command, args []string) error {
			maxPerString := stringing.MaxPanelsPerString(maxDCVoltage, voc)
			layout, ok := stringing.Compute(panels, maxPerString, mppt)
			if !ok {
				return stringing.Diagnose(panels, maxPerString, mppt)
			}
			return printJSON(map[string]any{
				"max_panels_per_string": maxPerString,
				"layout":                layout,
			})
		},
	}

	cmd.Flags().Float64Var(&maxDCVoltage, "max-dc-voltage", 1000, "inverter max DC input voltage (V)")
	cmd.Flags().Float64Var(&voc, "voc", 0, "module open-circuit voltage (V)")
	cmd.Flags().IntVar(&panels, "panels", 0, "total panel count")
	cmd.Flags().IntVar(&mppt, "mppt", 1, "MPPT inputs")
	_ = cmd.MarkFlagRequired("voc")
	_ = cmd.MarkFlagRequired("panels")
	return cmd
}

func recommendCmd() *cobra.Command {
	var projectFlag string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank catalog equipment for a project",
	}
	cmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "project id")
	_ = cmd.MarkPersistentFlagRequired("project")

	withRanker := func(fn func(ctx context.Context, r *recommend.Ranker, projectID uuid.UUID) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			projectID, err := uuid.Parse(projectFlag)
			if err != nil {
				return fmt.Errorf("invalid project id: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := fn(cmd.Context(), recommend.NewRanker(db, db), projectID)
			if err != nil {
				return err
			}
			return printJSON(result)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pv",
		Short: "Rank PV modules by efficiency and power",
		RunE: withRanker(func(ctx context.Context, r *recommend.Ranker, id uuid.UUID) (any, error) {
			return r.RankPVModules(ctx, id)
		}),
	})

	var (
		moduleFlag  string
		panelCount  int
		batteryFlag string
	)
	inverters := &cobra.Command{
		Use:   "inverters",
		Short: "Rank inverters for a module and panel count",
		RunE: withRanker(func(ctx context.Context, r *recommend.Ranker, id uuid.UUID) (any, error) {
			moduleID, err := uuid.Parse(moduleFlag)
			if err != nil {
				return nil, fmt.Errorf("invalid module id: %w", err)
			}
			q := recommend.InverterQuery{ProjectID: id, PVModuleID: moduleID, PanelCount: panelCount}
			if batteryFlag != "" {
				batteryID, err := uuid.Parse(batteryFlag)
				if err != nil {
					return nil, fmt.Errorf("invalid battery id: %w", err)
				}
				q.BatteryID = &batteryID
			}
			return r.RankInverters(ctx, q)
		}),
	}
	inverters.Flags().StringVar(&moduleFlag, "module", "", "PV module id")
	inverters.Flags().IntVar(&panelCount, "panels", 0, "total panel count")
	inverters.Flags().StringVar(&batteryFlag, "battery", "", "optional battery id")
	_ = inverters.MarkFlagRequired("module")
	_ = inverters.MarkFlagRequired("panels")
	cmd.AddCommand(inverters)

	cmd.AddCommand(&cobra.Command{
		Use:   "batteries",
		Short: "Rank batteries against the project's storage target",
		RunE: withRanker(func(ctx context.Context, r *recommend.Ranker, id uuid.UUID) (any, error) {
			return r.RankBatteries(ctx, id)
		}),
	})

	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
