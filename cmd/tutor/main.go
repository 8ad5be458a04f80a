package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/tutor/internal/curriculum"
	"github.com/pavelanni/tutor/internal/handler"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/store"
	"github.com/pavelanni/tutor/internal/tutor"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Writing tutor powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, planCmd(), exportCmd(), eventsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-provider", "openai", "LLM provider (anthropic, openai, gemini, mock)")
	f.String("llm-url", "", "API base URL override (openai defaults to a local Ollama server)")
	f.String("llm-key", "", "API key for LLM (required for anthropic and gemini)")
	f.String("llm-model", "", "LLM model name (empty = provider default)")
	f.Duration("llm-timeout", 2*time.Minute, "Timeout for a single LLM call (0 = none)")
	f.Int("max-tokens", 4096, "Output token limit for curriculum and tutor calls")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tutoring server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "tutor.db", "SQLite database path for the audit log")
	f.StringP("lang", "l", "en", "Default language for student-facing messages (en, es)")
	f.Duration("session-ttl", 2*time.Hour, "Idle time after which a session is dropped")
	f.Int("max-sessions", 1000, "Maximum number of live sessions (0 = unlimited)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a curriculum for an essay and print it as JSON",
		RunE:  runPlan,
	}
	f := cmd.Flags()
	f.StringP("essay", "e", "-", "Essay file path (- for stdin)")
	f.String("reflection", "", "Student reflection text")
	f.IntP("grade", "g", 0, "Student grade (1-12)")
	f.Bool("raw", false, "Print the model's unparsed reply")
	addLLMFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("grade")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session transcripts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "tutor.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded LLM calls as JSON",
		RunE:  runEvents,
	}
	f := cmd.Flags()
	f.String("db", "tutor.db", "SQLite database path")
	f.String("purpose", "", "Only show calls with this purpose (curriculum, welcome, feedback, response)")
	f.IntP("limit", "n", 50, "Maximum number of events (0 = all)")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// configDirs are searched in order for a tutor.{yaml,toml,json} config file.
var configDirs = []string{".", "$HOME/.config/tutor", "/etc/tutor"}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutor")
	for _, dir := range configDirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func llmConfig(v *viper.Viper) llm.Config {
	return llm.Config{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("llm-provider"))),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
		BaseURL:  v.GetString("llm-url"),
		Timeout:  v.GetDuration("llm-timeout"),
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the audit database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create LLM provider.
	cfg := llmConfig(v)
	provider, err := llm.NewProvider(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	slog.Info("LLM provider ready", "provider", cfg.Provider, "model", provider.ModelID())

	if err := db.SetServerInfo(ctx, model.ServerInfo{
		Provider:  cfg.Provider,
		Model:     provider.ModelID(),
		Lang:      lang,
		StartedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("record server info: %w", err)
	}

	maxTokens := v.GetInt("max-tokens")
	svc := tutor.NewService(provider,
		tutor.WithTranslator(appI18n.T),
		tutor.WithMaxTokens(maxTokens),
		tutor.WithSnapshots(db),
	)
	sessions := tutor.NewRegistry(v.GetInt("max-sessions"), v.GetDuration("session-ttl"))
	h := handler.New(svc, curriculum.NewPlanner(provider, maxTokens), sessions)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server",
		"addr", addr,
		"provider", cfg.Provider,
		"model", provider.ModelID(),
		"lang", lang,
		"session_ttl", v.GetDuration("session-ttl"),
		"max_sessions", v.GetInt("max-sessions"),
	)

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "sessions", sessions.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// Live sessions are lost on exit; keep their final state in the audit log.
	svc.SaveSnapshots(shutdownCtx, sessions.Sessions())
	return nil
}

func runPlan(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	essay, err := readInput(v.GetString("essay"))
	if err != nil {
		return err
	}
	in := curriculum.Input{
		StudentText:       essay,
		StudentReflection: v.GetString("reflection"),
		StudentGrade:      v.GetInt("grade"),
	}
	if err := in.Validate(); err != nil {
		return err
	}

	provider, err := llm.NewProvider(ctx, llmConfig(v), nil)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	planner := curriculum.NewPlanner(provider, v.GetInt("max-tokens"))

	if v.GetBool("raw") {
		text, err := planner.GenerateRaw(ctx, in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, text)
		return err
	}

	result, err := planner.Generate(ctx, in)
	if err != nil {
		var pe *curriculum.ParseError
		if errors.As(err, &pe) {
			slog.Error("unparseable curriculum", "raw", pe.Raw)
		}
		return err
	}
	return writeJSONOutput(os.Stdout, result)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	info, err := db.GetServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("read server info: %w", err)
	}
	transcripts, err := db.ExportTranscripts(ctx)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.TranscriptExport{
		ExportedAt:  time.Now().UTC(),
		Server:      info,
		NumSessions: len(transcripts),
		Sessions:    transcripts,
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeJSONOutput(w, export)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	events, err := db.ListLLMEvents(context.Background(), v.GetString("purpose"), v.GetInt("limit"))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.LLMEvent{}
	}
	return writeJSONOutput(os.Stdout, events)
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read essay: %w", err)
	}
	return string(data), nil
}

func writeJSONOutput(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
