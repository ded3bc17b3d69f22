package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cartes/api"
	"cartes/config"
	"cartes/generator"
	"cartes/layout"
	"cartes/scheduler"
	"cartes/storage"
	"cartes/theme"
	"cartes/themes"
	"cartes/visual"
)

var (
	dataDir    string
	listen     string
	listenPort int
	verbose    bool
	outDir     string
	subject    string
	cycle      string
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   "cartes",
	Short: "cartes – task-card generator for Quebec primary classrooms",
	Long:  "Cartes generates printable task cards with inline diagrams from the Quebec curriculum and serves them over HTTP.",
	RunE:  run,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Manage cartes configuration files.",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a default configuration file",
	Long:  "Generate a default cartes.yaml file in the specified data directory (or current directory if not specified).",
	RunE:  runConfigGenerate,
}

var renderCmd = &cobra.Command{
	Use:   "render <question text>",
	Short: "Render the visual tokens of a question",
	Long:  "Print the question without its [visual:...] tokens and write one SVG file per recognized token.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var notionsCmd = &cobra.Command{
	Use:   "notions",
	Short: "List the notions of a subject for a cycle",
	RunE:  runNotions,
}

func init() {
	wd, _ := os.Getwd()
	rootCmd.Version = appVersion
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", wd, "Data directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&listen, "listen", "all", "IP address to listen on (default: all)")
	rootCmd.Flags().IntVar(&listenPort, "listen-port", 8080, "Port to listen on (default: 8080)")

	renderCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the SVG files")

	notionsCmd.Flags().StringVar(&subject, "subject", "", "Subject key, e.g. mathematiques")
	notionsCmd.Flags().StringVar(&cycle, "cycle", "", "Cycle key, e.g. cycle2")
	_ = notionsCmd.MarkFlagRequired("subject")
	_ = notionsCmd.MarkFlagRequired("cycle")

	configCmd.AddCommand(configGenerateCmd)
	rootCmd.AddCommand(configCmd, renderCmd, notionsCmd)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig reads the config of the data directory. The --data-dir flag
// wins over a data_dir stored in the file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("data-dir") || cfg.DataDir == "" || cfg.DataDir == "." {
		cfg.DataDir = dataDir
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = abs
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("listen") || cmd.Flags().Changed("listen-port") {
		if listen != "" && listen != "all" {
			cfg.ListenAddr = net.JoinHostPort(listen, fmt.Sprint(listenPort))
		} else {
			cfg.ListenAddr = fmt.Sprintf(":%d", listenPort)
		}
	}

	store := storage.New(cfg.DataDir)
	if err := store.EnsureDirs(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := api.Deps{
		Store: store,
		Print: cfg.Print,
	}

	notions, err := storage.OpenNotions(cfg.KnowledgePath(), cfg.Notions.CacheTTL, logger.Named("notions"))
	if err != nil {
		logger.Warn("notion lookup disabled", zap.String("path", cfg.KnowledgePath()), zap.Error(err))
	} else {
		defer notions.Close()
		deps.Notions = notions
	}

	gemini, err := generator.NewGemini(ctx, cfg.Generator.APIKey, cfg.Generator.Model)
	if err != nil {
		logger.Warn("card generation disabled", zap.Error(err))
	} else {
		deps.Generator = generator.NewService(gemini, generator.Options{
			CardCount: cfg.Generator.CardCount,
			BatchSize: cfg.Generator.BatchSize,
			Timeout:   cfg.Generator.Timeout,
		}, logger.Named("generator"))
	}

	themeManager, err := theme.NewManager(themes.FS, ".", logger.Named("theme"))
	if err != nil {
		return fmt.Errorf("initialize theme manager: %w", err)
	}
	deps.Themes = themeManager

	printer, err := layout.NewRenderer()
	if err != nil {
		return err
	}
	deps.Printer = printer

	sched := scheduler.New(store.DeleteBefore, cfg.Retention.MaxAge, cfg.Retention.Interval, logger.Named("scheduler"))
	deps.Scheduler = sched
	sweeperDone := sched.Start(ctx)

	mux := http.NewServeMux()
	apiServer := api.NewServer(deps, logger.Named("api"))
	apiServer.Register(mux)
	theme.NewHandler(themeManager, cfg.Print.Layout, cfg.Print.Scheme).Register(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printListeningAddresses(logger, cfg.ListenAddr)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-sweeperDone
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiServer.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	<-sweeperDone
	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	dataDirAbs, err := filepath.Abs(dataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := config.Default()
	cfg.DataDir = dataDirAbs

	cfgPath := config.Path(dataDirAbs)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("config file already exists: %s", cfgPath)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated default config file: %s\n", cfgPath)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	parsed := visual.Parse(args[0])
	fmt.Fprintln(cmd.OutOrStdout(), parsed.Text)

	if len(parsed.Items) == 0 {
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for i, item := range parsed.Items {
		name := filepath.Join(outDir, fmt.Sprintf("visual-%d-%s.svg", i+1, item.Directive.Type))
		if err := os.WriteFile(name, []byte(item.Diagram.SVG()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", item.Directive.Token(), name)
	}
	return nil
}

func runNotions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.OpenNotions(cfg.KnowledgePath(), cfg.Notions.CacheTTL, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	notions, err := store.Notions(cmd.Context(), subject, cycle)
	if err != nil {
		return err
	}
	for _, n := range notions {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func printListeningAddresses(logger *zap.Logger, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		logger.Info("listening", zap.String("url", "http://"+addr))
		return
	}

	if host != "" && host != "0.0.0.0" && host != "::" {
		logger.Info("listening", zap.String("url", "http://"+net.JoinHostPort(host, port)))
		return
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		logger.Info("listening", zap.String("url", "http://0.0.0.0:"+port))
		return
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			logger.Info("listening", zap.String("url", "http://"+net.JoinHostPort(ipnet.IP.String(), port)))
		}
	}
	logger.Info("listening", zap.String("url", "http://localhost:"+port))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
