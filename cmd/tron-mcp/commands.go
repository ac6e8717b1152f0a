package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/config"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/logging"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/mcp"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/server"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/version"
	pkgauth "github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/auth"
)

const defaultTokenSubject = "tron-mcp-client"

var errNoJWTSecret = errors.New("AUTH_JWT_SECRET is not set")

// cliEnv carries the process streams and the persistent flag values.
type cliEnv struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFile    string
	stdio      bool
}

// load reads .env and the config, and builds the stderr logger.
func (e *cliEnv) load() (config.Config, *slog.Logger, error) {
	if e.envFile != "" {
		if err := config.LoadDotEnv(e.envFile); err != nil {
			return config.Config{}, nil, err
		}
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat, e.stderr), nil
}

func (e *cliEnv) gateway() (*gateway, error) {
	cfg, logger, err := e.load()
	if err != nil {
		return nil, err
	}
	return newGateway(cfg, logger)
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:           "tron-mcp",
		Short:         "TRON tool gateway for MCP clients",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env.stdio {
				return runStdio(cmd, env)
			}
			return runServe(cmd, env, serveFlags{})
		},
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.SetFlagErrorFunc(usageError)

	root.PersistentFlags().StringVar(&env.configPath, "config", "", "YAML config file (env: TRON_MCP_CONFIG)")
	root.PersistentFlags().StringVar(&env.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.Flags().BoolVar(&env.stdio, "stdio", false, "serve MCP over stdin/stdout (same as the stdio command)")

	root.AddCommand(
		newServeCmd(env),
		newStdioCmd(env),
		newToolsCmd(env),
		newTokenCmd(env),
		newVersionCmd(env),
	)
	return root
}

type serveFlags struct {
	host string
	port int
}

func newServeCmd(env *cliEnv) *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge (/mcp, /call, /tools, /health, /metrics)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, env, flags)
		},
	}
	cmd.Flags().StringVar(&flags.host, "host", "", "listen host (env: HOST)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "listen port (env: MCP_HTTP_PORT, PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, env *cliEnv, flags serveFlags) error {
	gw, err := env.gateway()
	if err != nil {
		return err
	}
	router, err := gw.router()
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = gw.cfg.Host
	srvCfg.Port = gw.cfg.MCPHTTPPort
	if flags.host != "" {
		srvCfg.Host = flags.host
	}
	if flags.port != 0 {
		srvCfg.Port = flags.port
	}
	return server.NewServer(router, srvCfg, gw.logger).Run(cmd.Context())
}

func newStdioCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP as newline-delimited JSON-RPC over stdin/stdout",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd, env)
		},
	}
}

func runStdio(cmd *cobra.Command, env *cliEnv) error {
	gw, err := env.gateway()
	if err != nil {
		return err
	}
	gw.logger.Info("stdio session started", "server", mcp.ServerName, "version", version.Version)
	if err := mcp.NewSession(gw.rpc("stdio"), env.stdin, env.stdout).Serve(cmd.Context()); err != nil {
		return fmt.Errorf("stdio session: %w", err)
	}
	return nil
}

func newToolsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := env.gateway()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"tools": gw.dispatcher.Specs()})
		},
	}
}

func newTokenCmd(env *cliEnv) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP bridge",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := env.load()
			if err != nil {
				return err
			}
			if cfg.AuthJWTSecret == "" {
				return errNoJWTSecret
			}
			signer, err := pkgauth.NewSigner(cfg.AuthJWTSecret)
			if err != nil {
				return err
			}
			token, err := signer.Issue(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", defaultTokenSubject, "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", pkgauth.DefaultTTL, "token lifetime")
	return cmd
}

func newVersionCmd(_ *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
