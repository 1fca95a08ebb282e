package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/channelchat/channelchat/internal/apiclient"
	"github.com/channelchat/channelchat/internal/config"
	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/credits"
	"github.com/channelchat/channelchat/internal/engine"
	"github.com/channelchat/channelchat/internal/export"
	"github.com/channelchat/channelchat/internal/retrieval"
	"github.com/channelchat/channelchat/internal/runner"
	"github.com/channelchat/channelchat/internal/storage"
	"github.com/channelchat/channelchat/internal/textgen"
	"github.com/channelchat/channelchat/web/handlers"
)

var (
	dbPath     string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "channelchat",
	Short: "Channel-vs-channel debate tool",
	Long: `channelchat orchestrates written debates between two channels.

Each channel argues from its own archived material. Debates advance one
turn at a time through intro, response and conclusion stages, and end
with a closing summary from each side.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.channelchat/channelchat.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config path (default: ~/.channelchat/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(debateCmd)
	rootCmd.AddCommand(exportCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.LoadFrom(path)
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	path := dbPath
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		path = storage.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}

	return store, nil
}

func buildEngine(cfg *config.Config, store storage.Storage) *engine.Engine {
	gen := textgen.NewHTTPGenerator(cfg.GeneratorConfig())
	retr := retrieval.NewClient(cfg.Retrieval.BaseURL, cfg.Retrieval.APIKey)
	ledger := credits.NewLedger(store, cfg.Debate.DebateCost, cfg.Debate.ChatCredit)

	return engine.New(store, gen, retr, ledger, engine.Options{
		MaxTurns: cfg.Debate.MaxTurns,
	})
}

// serve command

var (
	servePort int
	debugLogs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if debugLogs {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		store, err := getStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		h := handlers.New(store, eng)

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		server := &http.Server{
			Addr:    addr,
			Handler: h.Router(),
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			slog.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		slog.Info("Server listening", "addr", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (default from config)")
	serveCmd.Flags().BoolVar(&debugLogs, "debug", false, "Enable debug logging")
}

// channel commands

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage channels",
}

var channelCredits int

var channelAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		title, _ := cmd.Flags().GetString("title")
		ch := &core.Channel{
			ID:      core.GenerateID(),
			Name:    args[0],
			Title:   title,
			Credits: channelCredits,
		}
		if err := store.CreateChannel(ch); err != nil {
			return err
		}
		fmt.Printf("Created channel %s (%s)\n", ch.Name, ch.ID)
		return nil
	},
}

var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		channels, err := store.ListChannels(100, 0)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTITLE\tCREDITS\tCHATS")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", ch.ID, ch.Name, ch.Title, ch.Credits, ch.ChatCount)
		}
		return w.Flush()
	},
}

func init() {
	channelAddCmd.Flags().String("title", "", "Channel display title")
	channelAddCmd.Flags().IntVar(&channelCredits, "credits", 100, "Starting credit balance")

	channelCmd.AddCommand(channelAddCmd)
	channelCmd.AddCommand(channelListCmd)
}

// debate commands

var debateCmd = &cobra.Command{
	Use:   "debate",
	Short: "Manage debates",
}

var (
	topicFlag     string
	topicDescFlag string
)

var debateNewCmd = &cobra.Command{
	Use:   "new [channel-id-1] [channel-id-2]",
	Short: "Start a new debate between two channels",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		ctx := cmd.Context()

		topic := core.Topic{Title: topicFlag, Description: topicDescFlag}
		if topic.Title == "" {
			topics, err := eng.GenerateTopics(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("no topic given and topic generation failed: %w", err)
			}
			topic = topics[0]
			fmt.Printf("Generated topic: %s\n", topic.Title)
		}

		debate, err := eng.Initialize(ctx, args[0], args[1], args[0], topic)
		if err != nil {
			return err
		}
		fmt.Printf("Debate %s created: %s\n", debate.ID, debate.TopicTitle)
		return nil
	},
}

var debateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List debates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		debates, err := store.ListDebates(50, 0)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tSTATUS\tTURNS\tCREATED")
		for _, d := range debates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				d.ID, truncate(d.TopicTitle, 48), d.Status, d.TurnCount,
				d.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var debateShowCmd = &cobra.Command{
	Use:   "show [debate-id]",
	Short: "Show a debate transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		debate, turns, err := eng.GetDebate(args[0])
		if err != nil {
			return err
		}

		names := map[string]string{}
		for _, id := range []string{debate.ChannelID1, debate.ChannelID2} {
			if ch, err := store.GetChannel(id); err == nil && ch != nil {
				names[id] = ch.Name
			} else {
				names[id] = id
			}
		}

		fmt.Printf("Topic: %s\n", debate.TopicTitle)
		if debate.TopicDescription != "" {
			fmt.Printf("       %s\n", debate.TopicDescription)
		}
		fmt.Printf("Status: %s (%d/%d turns)\n\n", debate.Status, len(turns), debate.MaxTurns)

		for _, turn := range turns {
			fmt.Printf("--- Turn %d: %s ---\n%s\n\n", turn.Position+1, names[turn.ChannelID], turn.Content)
		}

		if debate.Summary1 != "" || debate.Summary2 != "" {
			fmt.Println("=== Closing statements ===")
			if debate.Summary1 != "" {
				fmt.Printf("\n%s:\n%s\n", names[debate.ChannelID1], debate.Summary1)
			}
			if debate.Summary2 != "" {
				fmt.Printf("\n%s:\n%s\n", names[debate.ChannelID2], debate.Summary2)
			}
		}
		return nil
	},
}

var debateTurnCmd = &cobra.Command{
	Use:   "turn [debate-id]",
	Short: "Advance a debate by one turn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		content, _ := cmd.Flags().GetString("content")
		eng := buildEngine(cfg, store)

		debate, turns, err := eng.ProcessTurn(cmd.Context(), args[0], content)
		if err != nil {
			return err
		}

		last := turns[len(turns)-1]
		fmt.Printf("Turn %d (%s):\n%s\n", last.Position+1, debate.Status, last.Content)
		return nil
	},
}

var debateConcludeCmd = &cobra.Command{
	Use:   "conclude [debate-id]",
	Short: "Generate closing summaries for a debate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		debate, _, err := eng.Conclude(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Debate %s concluded.\n\n%s\n\n%s\n", debate.ID, debate.Summary1, debate.Summary2)
		return nil
	},
}

var debateTopicsCmd = &cobra.Command{
	Use:   "topics [channel-id-1] [channel-id-2]",
	Short: "Suggest debate topics for two channels",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		topics, err := eng.GenerateTopics(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		for i, t := range topics {
			fmt.Printf("%d. %s: %s\n", i+1, t.Title, t.Description)
		}
		return nil
	},
}

var (
	serverFlag       string
	autoConcludeFlag bool
)

var debateRunCmd = &cobra.Command{
	Use:   "run [debate-id]",
	Short: "Drive a debate automatically against a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := apiclient.New(serverFlag)
		r := runner.New(client, runner.LogNotifier{}, runner.Options{
			Debounce:     cfg.Runner.Debounce,
			PollInterval: cfg.Runner.PollInterval,
			AutoConclude: autoConcludeFlag,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return r.Run(ctx, args[0])
	},
}

func init() {
	debateTurnCmd.Flags().String("content", "", "Optional steering text for the next speaker")
	debateRunCmd.Flags().StringVar(&serverFlag, "server", "http://localhost:8480", "Server base URL")
	debateRunCmd.Flags().BoolVar(&autoConcludeFlag, "conclude", true, "Request summaries once the turn cap is reached")
	debateNewCmd.Flags().StringVarP(&topicFlag, "topic", "t", "", "Debate topic title")
	debateNewCmd.Flags().StringVar(&topicDescFlag, "description", "", "Debate topic description")

	debateCmd.AddCommand(debateNewCmd)
	debateCmd.AddCommand(debateListCmd)
	debateCmd.AddCommand(debateShowCmd)
	debateCmd.AddCommand(debateTurnCmd)
	debateCmd.AddCommand(debateConcludeCmd)
	debateCmd.AddCommand(debateTopicsCmd)
	debateCmd.AddCommand(debateRunCmd)
}

// export command

var exportCmd = &cobra.Command{
	Use:   "export [debate-id] [format]",
	Short: "Export a debate transcript (markdown, json, pdf)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := buildEngine(cfg, store)
		debate, turns, err := eng.GetDebate(args[0])
		if err != nil {
			return err
		}
		ch1, err := store.GetChannel(debate.ChannelID1)
		if err != nil {
			return err
		}
		ch2, err := store.GetChannel(debate.ChannelID2)
		if err != nil {
			return err
		}

		exporter, err := export.GetExporter(export.Format(args[1]))
		if err != nil {
			return err
		}

		filename := export.GenerateFilename(debate, exporter.FileExtension())
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := exporter.Export(debate, ch1, ch2, turns, f); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", filename)
		return nil
	},
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
