package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/freshservice-mcp/pkg/config"
	"github.com/Sternrassler/freshservice-mcp/pkg/logging"
	"github.com/Sternrassler/freshservice-mcp/pkg/mcpserver"
	"github.com/Sternrassler/freshservice-mcp/pkg/metrics"
	"github.com/Sternrassler/freshservice-mcp/pkg/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var envFiles []string

	root := &cobra.Command{
		Use:           "freshservice-mcp",
		Short:         "MCP server for Freshservice ITSM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load")
	flags.String("domain", "", "Freshservice domain, e.g. acme.freshservice.com")
	flags.String("api-key", "", "Freshservice API key")
	flags.Duration("timeout", 0, "upstream request timeout")
	flags.Duration("lookup-ttl", 0, "agent/group lookup cache TTL")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("log-pretty", false, "human-readable logs on stderr")
	flags.String("redis-addr", "", "Redis address for shared rate-limit state")
	flags.String("metrics-addr", "", "listen address for /metrics, e.g. :9090")

	for key, flag := range map[string]string{
		config.KeyDomain:      "domain",
		config.KeyAPIKey:      "api-key",
		config.KeyTimeout:     "timeout",
		config.KeyLookupTTL:   "lookup-ttl",
		config.KeyLogLevel:    "log-level",
		config.KeyLogPretty:   "log-pretty",
		config.KeyRedisAddr:   "redis-addr",
		config.KeyMetricsAddr: "metrics-addr",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newServeCmd(v, &envFiles),
		newToolsCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(v *viper.Viper, envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFiles(*envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logging.Setup(logging.Config{
				Level:  cfg.LogLevel,
				Pretty: cfg.LogPretty,
				Output: os.Stderr,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.Default(tools.Deps{})
			for _, t := range registry.Tools() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", t.Name, t.Description)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "freshservice-mcp %s\n", version)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	log.Info().
		Str("domain", cfg.Domain).
		Str("version", version).
		Bool("redis", cfg.RedisAddr != "").
		Msg("Starting freshservice-mcp")

	return mcpserver.New(a.registry, version).ServeStdio(ctx, in, out)
}
