package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/redirtxt/redirtxt/internal/api"
	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/log"
	"github.com/redirtxt/redirtxt/internal/redirect"
	"github.com/redirtxt/redirtxt/internal/server"
	"github.com/redirtxt/redirtxt/internal/source"
	"github.com/redirtxt/redirtxt/internal/statistics"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

var (
	AppVersion    = "Development"
	shutdownChain []func() error
)

var rootCmd = &cobra.Command{
	Use:          "redirtxt",
	Short:        "redirtxt serves redirects from a plain-text rule set",
	Long:         "redirtxt matches requests against a plain-text list of redirect rules and answers with redirects, 404s or denials, passing everything else to an upstream.",
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringP("rules-file", "r", "", "Rules file path")
	rootCmd.PersistentFlags().String("home-url", "", "Public home URL of the site")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level")

	rootCmd.Flags().StringP("listen", "L", "", "Listen address")
	rootCmd.Flags().String("api-listen", "", "Admin API listen address")
	rootCmd.Flags().StringP("upstream", "u", "", "Upstream URL for requests that are not redirected")
	rootCmd.Flags().BoolP("watch", "w", false, "Reload the rules file when it changes")
	rootCmd.Flags().BoolP("version", "v", false, "Show version")
	rootCmd.Flags().BoolP("generate-config", "g", false, "Generate template config file")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("rules-file", rootCmd.PersistentFlags().Lookup("rules-file"))
	_ = viper.BindPFlag("home-url", rootCmd.PersistentFlags().Lookup("home-url"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("listen", rootCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("api-listen", rootCmd.Flags().Lookup("api-listen"))
	_ = viper.BindPFlag("upstream", rootCmd.Flags().Lookup("upstream"))
	_ = viper.BindPFlag("watch-rules", rootCmd.Flags().Lookup("watch"))

	viper.SetEnvPrefix("REDIRTXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(checkCmd, matchCmd)
}

func initConfig() {
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.MergeInConfig(); err != nil {
			slog.Error("Failed to read config file", slog.Any("error", err))
			os.Exit(1)
		}
	}
	config.SetDefaults()
}

// runtime is everything the request path needs, built from the config.
type runtime struct {
	cfg        *config.Config
	rules      *source.Rules
	resolver   *source.StaticResolver
	recorder   *statistics.Recorder
	redirector *redirect.Redirector
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	var rules *source.Rules
	if cfg.RulesFile != "" {
		// an unreadable file serves no rules until it is fixed
		rules, _ = source.NewFile(cfg.RulesFile)
	} else {
		rules = source.NewStatic(cfg.Rules)
	}

	eventsFile := cfg.EventsFile
	if eventsFile == "" {
		eventsFile = log.GetEventsFilePath()
	}
	rt := &runtime{
		cfg:      cfg,
		rules:    rules,
		resolver: source.NewStaticResolver(urlnorm.NewSite(cfg.HomeURL), cfg.Resources),
		recorder: statistics.NewRecorder(cfg.Settings, eventsFile),
	}
	rt.redirector = redirect.New(cfg, rt.rules, rt.resolver, rt.recorder)
	return rt, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	showVer, _ := cmd.Flags().GetBool("version")
	if showVer {
		fmt.Printf("redirtxt version %s\n", AppVersion)
		return nil
	}

	genConfig, _ := cmd.Flags().GetBool("generate-config")
	if genConfig {
		_, err := config.GenerateTemplateConfig(true)
		if err != nil {
			return fmt.Errorf("failed to generate template config: %w", err)
		}
		fmt.Println("Template config file 'config.yaml' generated successfully.")
		return nil
	}

	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	lb := log.NewBroadcaster()
	log.SetLogConf(cfg.LogLevel, cfg.LogFile, lb)
	log.LogHeader(AppVersion, cfg)

	rt, err := newRuntime(cfg)
	if err != nil {
		slog.Error("newRuntime", slog.Any("error", err))
		return err
	}

	srv, err := server.New(cfg, rt.redirector, rt.recorder)
	if err != nil {
		slog.Error("server.New", slog.Any("error", err))
		return err
	}
	addShutdown("srv.Close", srv.Close)
	if err := srv.Start(); err != nil {
		slog.Error("srv.Start", slog.Any("error", err))
		shutdown()
		return err
	}

	if cfg.APIListen != "" {
		apiSrv := api.New(cfg.APIListen, AppVersion, cfg, rt.redirector, rt.rules, rt.recorder, lb)
		addShutdown("apiSrv.Close", apiSrv.Close)
		if err := apiSrv.Start(); err != nil {
			slog.Error("apiSrv.Start", slog.Any("error", err))
			shutdown()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.recorder.Run(gctx)
	})
	if cfg.WatchRules && cfg.RulesFile != "" {
		g.Go(func() error {
			return rt.rules.Watch(gctx, source.DefaultDebounce)
		})
	}
	g.Go(func() error {
		return reloadOnHangup(gctx, rt.rules)
	})

	err = g.Wait()
	shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reloadOnHangup re-reads the rules file on SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, rules *source.Rules) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			slog.Info("Received signal", slog.String("signal", "hangup"))
			_ = rules.Reload()
		}
	}
}

func addShutdown(name string, fn func() error) {
	shutdownChain = append(shutdownChain, func() error {
		if err := fn(); err != nil {
			slog.Error(name, slog.Any("error", err))
			return err
		}
		return nil
	})
}

func shutdown() {
	for i := len(shutdownChain) - 1; i >= 0; i-- {
		_ = shutdownChain[i]()
	}
	shutdownChain = nil
	slog.Info("redirtxt exit")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
