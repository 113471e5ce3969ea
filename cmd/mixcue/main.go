package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mixcue/internal/chatflow"
	"mixcue/internal/config"
	"mixcue/internal/db"
	"mixcue/internal/domain"
	"mixcue/internal/ingest"
	"mixcue/internal/migrate"
	"mixcue/internal/parser"
	"mixcue/internal/repo"
	"mixcue/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "mixcue",
	Short: "MixCue CLI",
	Long: `MixCue is a wedding DJ planning portal.
Core concepts:
- Workspace: your .mixcue directory with the SQLite database; studio settings live in mixcue.yml.
- Event: one wedding, owning the planning, music ideas, and timeline forms.
- Chat: a scripted conversation that collects the basics from the couple, one answer at a time.
- Ingestion: uploaded documents and pasted notes go through the AI parser and land on the forms.
- Client links: shareable keys that scope a couple's access to their own event.
- Activity log: diary of changes, view with 'mixcue log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MIXCUE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-admin", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(formsCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(clientLinkCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage studio config",
		Long:  "Config is mixcue.yml in the workspace: studio identity, the parser service, auth, and server defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var studioID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default mixcue.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(studioID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&studioID, "studio-id", "studio-local", "studio id")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate mixcue.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{
		Use:   "event",
		Short: "Manage events",
		Long:  "Events are weddings. Each owns its forms, chat, documents, and client links.",
	}
	ev.AddCommand(eventCreateCmd())
	ev.AddCommand(eventListCmd())
	ev.AddCommand(eventShowCmd())
	ev.AddCommand(eventUpdateCmd())
	return ev
}

func eventCreateCmd() *cobra.Command {
	var id, title, coupleNames, eventDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				ev := domain.Event{
					ID:          id,
					Title:       title,
					CoupleNames: coupleNames,
					EventDate:   eventDate,
					Status:      "active",
					CreatedAt:   time.Now().UTC().Format(time.RFC3339),
				}
				if ev.ID == "" {
					ev.ID = uuid.NewString()
				}
				if err := r.InsertEvent(ctx, ev); err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "event id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&coupleNames, "couple-names", "", "couple names")
	cmd.Flags().StringVar(&eventDate, "date", "", "event date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func eventListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListEvents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Couple", "Date", "Status"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.Title, e.CoupleNames, e.EventDate, e.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func eventShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				ev, err := r.GetEvent(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	return cmd
}

func eventUpdateCmd() *cobra.Command {
	var status, calendarLink string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update event status or calendar link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var linkPtr *string
				if cmd.Flags().Changed("calendar-link") {
					linkPtr = &calendarLink
				}
				if err := r.UpdateEvent(ctx, args[0], status, linkPtr); err != nil {
					return err
				}
				ev, err := r.GetEvent(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status (active, archived)")
	cmd.Flags().StringVar(&calendarLink, "calendar-link", "", "DJ calendar link (empty clears)")
	return cmd
}

func chatCmd() *cobra.Command {
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Inspect the planning chat",
		Long:  "The chat walks the couple through seven questions. The server owns the step pointer; completion is one-way.",
	}
	chat.AddCommand(chatShowCmd())
	chat.AddCommand(chatResetCmd())
	chat.AddCommand(chatFillFormsCmd())
	return chat
}

func chatShowCmd() *cobra.Command {
	var eventID, userID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show conversation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, s stack) error {
				st, err := s.Chat.GetOrCreate(ctx, eventID, userID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("Progress: %s step=%d completed=%v\n", st.Progress.ID, st.Progress.CurrentStep, st.IsCompleted)
				for _, m := range st.Messages {
					who := "client"
					if m.IsBot {
						who = "bot"
					}
					fmt.Printf("  [%s] %s\n", who, m.Text)
				}
				if st.CurrentStep != nil {
					fmt.Printf("Next question: %s\n", st.CurrentStep.Question)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&userID, "user", "", "client user id")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func chatResetCmd() *cobra.Command {
	var eventID, userID string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Archive the conversation and start over",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, s stack) error {
				p, err := s.Chat.Reset(ctx, eventID, userID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&userID, "user", "", "client user id")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func chatFillFormsCmd() *cobra.Command {
	var eventID, userID string
	cmd := &cobra.Command{
		Use:   "fill-forms",
		Short: "Map the chat's answers onto the planning forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, s stack) error {
				res, err := s.Chat.FillForms(ctx, eventID, userID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&userID, "user", "", "client user id")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func formsCmd() *cobra.Command {
	forms := &cobra.Command{
		Use:   "forms",
		Short: "Inspect planning forms",
	}
	forms.AddCommand(formsShowCmd())
	return forms
}

func formsShowCmd() *cobra.Command {
	var eventID string
	cmd := &cobra.Command{
		Use:   "show <kind>",
		Short: "Show a form (planning, music, timeline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var form any
				var err error
				switch args[0] {
				case "planning":
					form, _, err = r.GetPlanningForm(ctx, eventID)
				case "music":
					form, _, err = r.GetMusicIdeasForm(ctx, eventID)
				case "timeline":
					form, _, err = r.GetTimelineForm(ctx, eventID)
				default:
					return fmt.Errorf("unknown form kind %q", args[0])
				}
				if errors.Is(err, repo.ErrNotFound) {
					fmt.Println("form not filled yet")
					return nil
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(form)
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func parseCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "parse",
		Short: "Parse documents or notes into the forms",
		Long:  "Parsing sends content to the configured AI parser and maps the extraction onto planning, music ideas, and timeline. Each form saves independently.",
	}
	p.AddCommand(parseDocCmd())
	p.AddCommand(parseNotesCmd())
	return p
}

func parseDocCmd() *cobra.Command {
	var eventID, filePath, docType string
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Upload and parse a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filePath)
			if err != nil {
				return err
			}
			defer f.Close()
			return withStack(cmd.Context(), func(ctx context.Context, s stack) error {
				res, err := s.Ingest.IngestDocument(ctx, eventID, "", viper.GetString("actor-id"),
					filepath.Base(filePath), docType, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&filePath, "file", "", "document path")
	cmd.Flags().StringVar(&docType, "type", "", "document type hint")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseNotesCmd() *cobra.Command {
	var eventID, filePath string
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Parse pasted notes from a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if filePath != "" {
				data, err = os.ReadFile(filePath)
			} else {
				data, err = os.ReadFile("/dev/stdin")
			}
			if err != nil {
				return err
			}
			notes := strings.TrimSpace(string(data))
			if notes == "" {
				return fmt.Errorf("notes are empty")
			}
			return withStack(cmd.Context(), func(ctx context.Context, s stack) error {
				res, err := s.Ingest.IngestNotes(ctx, eventID, "", viper.GetString("actor-id"), notes)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&filePath, "file", "", "notes file (stdin if omitted)")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func clientLinkCmd() *cobra.Command {
	cl := &cobra.Command{
		Use:   "client-link",
		Short: "Manage shareable client keys",
		Long:  "Client links give a couple scoped access to their own event. The key is shown once at issue time; only its hash is stored.",
	}
	cl.AddCommand(clientLinkIssueCmd())
	cl.AddCommand(clientLinkListCmd())
	cl.AddCommand(clientLinkRevokeCmd())
	return cl
}

func clientLinkIssueCmd() *cobra.Command {
	var eventID, userID string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a client key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetEvent(ctx, eventID); err != nil {
					return err
				}
				key := uuid.NewString()
				link := domain.ClientLink{
					ID:        uuid.NewString(),
					EventID:   eventID,
					UserID:    userID,
					KeyHash:   repo.HashClientKey(key),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertClientLink(ctx, link); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"link": link, "key": key})
				}
				fmt.Printf("Issued key for %s (user %s):\n  %s\n", eventID, userID, key)
				fmt.Println("Store it now; only the hash is kept.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&userID, "user", "", "client user id")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func clientLinkListCmd() *cobra.Command {
	var eventID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List client keys for an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				links, err := r.ListClientLinks(ctx, eventID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(links)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Created"})
				for _, l := range links {
					tw.AppendRow(table.Row{l.ID, l.UserID, l.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func clientLinkRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a client key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteClientLink(ctx, args[0])
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var eventID string
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail event activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListActivity(ctx, eventID, n, 0)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Actor"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.TS, a.Type, a.EntityID, a.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default("studio-local")
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}

			log := newLogger()
			orch := ingest.New(conn, parser.NewHTTPClient(cfg), log)
			chat := chatflow.New(conn, orch, log)

			secret := cfg.Auth.JWTSecret
			if secret == "" {
				secret = os.Getenv("MIXCUE_JWT_SECRET")
			}
			authCfg := server.AuthConfig{
				JWTSecret:              secret,
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
			}
			if secret == "" && !authCfg.AllowLegacyActorHeader {
				return fmt.Errorf("auth.jwt_secret or MIXCUE_JWT_SECRET is required for bearer auth")
			}

			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}

			handler, err := server.New(server.Config{
				Chat:     chat,
				Ingest:   orch,
				App:      cfg,
				BasePath: basePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving MixCue API")
			fmt.Printf("Serving MixCue API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8420", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

type stack struct {
	Repo   repo.Repo
	Chat   chatflow.Engine
	Ingest *ingest.Orchestrator
}

func withStack(ctx context.Context, fn func(context.Context, stack) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default("studio-local")
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	log := newLogger()
	orch := ingest.New(conn, parser.NewHTTPClient(cfg), log)
	chat := chatflow.New(conn, orch, log)
	return fn(ctx, stack{Repo: repo.Repo{DB: conn}, Chat: chat, Ingest: orch})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if viper.GetString("log-level") != "" {
		if parsed, err := zerolog.ParseLevel(viper.GetString("log-level")); err == nil {
			level = parsed
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
