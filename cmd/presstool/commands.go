package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bilgisen/autopress/internal/api"
	"github.com/bilgisen/autopress/internal/app"
	"github.com/bilgisen/autopress/internal/catalog"
	"github.com/bilgisen/autopress/internal/config"
	"github.com/bilgisen/autopress/internal/middleware"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/bilgisen/autopress/internal/storage"
	"github.com/spf13/cobra"
)

func feedsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List the feed catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCOUNTRY\tURL")
			for _, f := range cat.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Category, f.Country, f.URL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "catalog", "", "Catalog YAML file (default: embedded catalog)")
	return cmd
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [feed-id...]",
		Short: "Fetch feeds and print the normalized articles",
		Long:  "Fetches the given feeds concurrently. Without ids a default subset of the catalog is read.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				articles, stats := a.Fetcher.FetchMany(cmd.Context(), args)
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"count":    len(articles),
					"stats":    stats,
					"articles": articles,
				})
			})
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract the article text of one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return printJSON(cmd.OutOrStdout(), a.Extractor.Extract(cmd.Context(), args[0]))
			})
		},
	}
}

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <task-key>",
		Short: "Run a job once, as the scheduler would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				report, err := a.Runner.Trigger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func jobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}
	cmd.AddCommand(jobCreateCmd(), jobListCmd())
	return cmd
}

func jobCreateCmd() *cobra.Command {
	var (
		job      models.JobRecord
		kind     string
		feedIDs  string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a job and print its trigger URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			job.Kind = models.JobKind(kind)
			job.IsActive = !inactive
			for _, id := range strings.Split(feedIDs, ",") {
				if id = strings.TrimSpace(id); id != "" {
					job.Source.FeedIDs = append(job.Source.FeedIDs, id)
				}
			}

			if err := middleware.NewValidator().Validate(&job); err != nil {
				return fmt.Errorf("invalid job: %v", middleware.FieldErrors(err))
			}
			if job.Kind == models.JobKindTheme && strings.TrimSpace(job.Source.Theme) == "" {
				return errors.New("a theme job needs --theme")
			}

			return withApp(cmd, func(a *app.App) error {
				if err := api.RegisterJob(cmd.Context(), a.Store, &job); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"job":        job,
					"triggerUrl": api.TriggerURL(a.Config.SiteURL, job.TaskKey),
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&job.Name, "name", "", "Job name")
	f.StringVar(&kind, "kind", string(models.JobKindTheme), "Job kind (theme or feed)")
	f.StringVar(&job.Source.Theme, "theme", "", "Theme for theme jobs")
	f.StringVar(&feedIDs, "feeds", "", "Comma separated feed ids for feed jobs (default subset when empty)")
	f.StringVar(&job.Source.Style, "style", "Formal", "Writing style")
	f.StringVar(&job.Source.Model, "model", "Breaking News", "Article model")
	f.StringVar(&job.Source.Language, "language", "id", "Target language (id or en)")
	f.StringVar(&job.TargetCategoryID, "category", "", "Target category id")
	f.IntVar(&job.ItemsPerRun, "items", 1, "Items per run")
	f.BoolVar(&job.Source.GenerateImage, "image", false, "Generate a lead image per item")
	f.BoolVar(&job.Source.ShowSourceAttribution, "attribution", true, "Append the source name to feed articles")
	f.BoolVar(&job.IsPublishByDefault, "publish", false, "Publish produced articles immediately")
	f.BoolVar(&inactive, "inactive", false, "Create the job disabled")
	cmd.MarkFlagRequired("name")
	return cmd
}

func jobListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				list, err := a.Store.ListJobs(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TASK KEY\tNAME\tKIND\tACTIVE\tSTATUS\tRUNS\tITEMS")
				for _, j := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%d\t%d\n",
						j.TaskKey, j.Name, j.Kind, j.IsActive, j.LastRunStatus, j.TotalRuns, j.TotalItemsProduced)
				}
				return w.Flush()
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != "postgres" {
				return fmt.Errorf("migrate needs STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
			}

			pg, err := storage.NewPostgresStore(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
