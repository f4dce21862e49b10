package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/vbonduro/farmguide/internal/config"
	"github.com/vbonduro/farmguide/internal/db"
	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/inventory"
	"github.com/vbonduro/farmguide/internal/logging"
	"github.com/vbonduro/farmguide/internal/service"
	"github.com/vbonduro/farmguide/internal/web"
	"github.com/vbonduro/farmguide/internal/web/templates"
)

// withApp loads configuration and logging, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "farmguide",
		Short: "Bilingual farming assistant.",
		Long: `FarmGuide answers farming questions in Hindi and English, diagnoses crop
photos and keeps a voice-controlled farm inventory.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newDiagnoseCommand())
	root.AddCommand(newInventoryCommand())
	root.AddCommand(newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				job, err := service.NewRetentionJob(a.messages, a.cfg.ChatRetention, a.cfg.PruneSchedule, a.logger)
				if err != nil {
					return err
				}
				job.Start()
				defer job.Stop(context.Background())

				server := web.NewServer(web.Services{
					Chat:        a.chat,
					Inventory:   a.inventory,
					Diagnosis:   a.diagnosis,
					Transcriber: a.transcriber,
				}, templates.FS, a.logger)

				if addr == "" {
					addr = a.cfg.ListenAddr
				}
				return server.ListenAndServe(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to LISTEN_ADDR)")
	return cmd
}

func newAskCommand() *cobra.Command {
	var farmingContext string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a single question.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reply, err := a.chat.Ask(ctx, strings.Join(args, " "), domain.ParseFarmingContext(farmingContext))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&farmingContext, "context", "c", string(domain.ContextGeneral), "diagnosis, inventory or general")
	return cmd
}

func newDiagnoseCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "diagnose <image>",
		Short: "Diagnose a crop photo.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mt := mimetype.Detect(data)
			if !strings.HasPrefix(mt.String(), "image/") {
				return fmt.Errorf("%s is not an image (%s)", args[0], mt.String())
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if save {
					d, err := a.diagnosis.Diagnose(ctx, data, mt.String())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(out, "#%d [%s]\n%s\n", d.ID, d.Source, d.Report)
					return err
				}
				report, err := a.diagnoser.Diagnose(ctx, bytes.NewReader(data), mt.String())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "[%s]\n%s\n", report.Source, report.Text)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "record the diagnosis and photo")
	return cmd
}

func newInventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect or change the farm inventory.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List items grouped by category.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				groups, err := a.inventory.Grouped(ctx)
				if err != nil {
					return err
				}
				return printInventory(cmd.OutOrStdout(), groups)
			})
		},
	}

	apply := &cobra.Command{
		Use:   "apply <spoken command>",
		Short: "Apply a spoken-style command such as \"add 50 kg urea\".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.inventory.ApplyVoiceCommand(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
				return err
			})
		},
	}
	cmd.AddCommand(list, apply)
	return cmd
}

func printInventory(w io.Writer, groups []service.CategoryGroup) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s\n", strings.ToUpper(string(g.Category))); err != nil {
			return err
		}
		for _, it := range g.Items {
			if _, err := fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", it.ID, it.Name, inventory.FormatQuantity(it.Quantity, it.Unit), it.Notes); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			version, dirty, err := db.SchemaVersion(database)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return err
		},
	}
}
