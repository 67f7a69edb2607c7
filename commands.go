package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"food-picker/bot"
	"food-picker/config"
	"food-picker/db"
	"food-picker/logging"
	"food-picker/migrations"
	"food-picker/models"
	"food-picker/services"
	"food-picker/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root command has loaded the config.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "food-picker",
		Short:         "Keep a restaurant list and get random recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}
	botCmd := a.botCmd()
	root.RunE = botCmd.RunE
	root.AddCommand(
		botCmd,
		a.migrateCmd(),
		a.listCmd(),
		a.addCmd(),
		a.editCmd(),
		a.recommendCmd(),
		a.exportCmd(),
	)
	return root
}

// withStore opens the configured backend, loads the list and runs fn.
func (a *app) withStore(ctx context.Context, fn func(*services.RestaurantStore) error) error {
	if a.cfg.Storage.Backend == config.StoragePostgres {
		if err := db.Init(ctx, a.cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer db.Close()
		if a.cfg.DB.AutoMigrate {
			if err := migrations.Apply(ctx, a.log); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}
	backend, err := storage.Open(a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer backend.Close()

	store := services.NewRestaurantStore(backend, a.cfg.Storage.Key, services.WithLogger(a.log))
	store.Load(ctx)
	return fn(store)
}

func (a *app) botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Telegram.Token == "" {
				return fmt.Errorf("TOKEN not set")
			}
			return a.withStore(cmd.Context(), func(store *services.RestaurantStore) error {
				b, err := bot.New(a.cfg, store, a.log)
				if err != nil {
					return fmt.Errorf("bot: %w", err)
				}
				b.Start(cmd.Context())
				return nil
			})
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Init(cmd.Context(), a.cfg.DB); err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer db.Close()
			return migrations.Apply(cmd.Context(), a.log)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the restaurant list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *services.RestaurantStore) error {
				for i, r := range store.List() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i, r.Name, r.Category)
				}
				return nil
			})
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(category)
			if err != nil {
				return err
			}
			return a.upsert(cmd, models.Restaurant{Name: args[0], Category: cat}, nil)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "light", "light or heavy")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "edit INDEX NAME",
		Short: "Replace the restaurant at INDEX",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index %q: %w", args[0], err)
			}
			cat, err := parseCategory(category)
			if err != nil {
				return err
			}
			return a.upsert(cmd, models.Restaurant{Name: args[1], Category: cat}, &idx)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "light", "light or heavy")
	return cmd
}

func (a *app) upsert(cmd *cobra.Command, r models.Restaurant, editingIndex *int) error {
	return a.withStore(cmd.Context(), func(store *services.RestaurantStore) error {
		// the store appends on an unknown index; an explicit INDEX must name an entry
		if editingIndex != nil {
			if n := len(store.List()); *editingIndex < 0 || *editingIndex >= n {
				return fmt.Errorf("index %d out of range (list has %d entries, 0..%d)", *editingIndex, n, n-1)
			}
		}
		applied, err := store.Upsert(cmd.Context(), r, editingIndex)
		if err != nil {
			return err
		}
		if !applied {
			fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
		return nil
	})
}

func (a *app) recommendCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Pick a random restaurant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat models.Category
			if category != "" {
				var err error
				if cat, err = parseCategory(category); err != nil {
					return err
				}
			}
			return a.withStore(cmd.Context(), func(store *services.RestaurantStore) error {
				r, ok := store.Recommend(cat)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no recommendation")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "light or heavy (default any)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the list to an .xlsx spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *services.RestaurantStore) error {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := services.WriteRestaurantsXLSX(f, store.List()); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func parseCategory(s string) (models.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "light meal":
		return models.CategoryLight, nil
	case "heavy", "heavy meal":
		return models.CategoryHeavy, nil
	}
	return "", fmt.Errorf("unknown category %q (want light or heavy)", s)
}
