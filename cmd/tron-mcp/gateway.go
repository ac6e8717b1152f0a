package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/config"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/metrics"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/tron"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/upstream"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/mcp"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/version"
	pkgauth "github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/auth"
)

// gateway is the process-wide object graph. Both transports share one
// dispatcher.
type gateway struct {
	cfg        config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	dispatcher *tool.Dispatcher
}

func newGateway(cfg config.Config, logger *slog.Logger) (*gateway, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := upstream.NewClient(upstream.Config{
		Timeout:    cfg.UpstreamTimeout,
		Retries:    cfg.UpstreamRetries,
		Logger:     logger,
		Observer:   m,
		Production: cfg.IsProduction(),
	})

	registry := tool.NewRegistry()
	err := tool.RegisterBuiltInExecutors(registry, tool.BuiltinServices{
		Grid:         tron.NewGridClient(cfg.TronGridBase, cfg.TronGridAPIKey, client),
		Scan:         tron.NewScanClient(cfg.TronScanBase, cfg.TronScanAPIKey, client),
		USDTContract: cfg.USDTContract,
	})
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	dispatcher := tool.NewDispatcher(registry, tool.DispatcherConfig{
		Summarizer: tool.NewSummarizer(cfg.SummaryLangs),
		Logger:     logger,
		Observer:   m,
	})
	return &gateway{cfg: cfg, logger: logger, metrics: m, dispatcher: dispatcher}, nil
}

// rpc returns a protocol handler tagged with transport for logs and metrics.
func (g *gateway) rpc(transport string) *mcp.Handler {
	return mcp.NewHandler(g.dispatcher, mcp.Config{
		Info:      mcp.ServerInfo{Name: mcp.ServerName, Version: version.Version},
		Transport: transport,
		Logger:    g.logger,
		Observer:  g.metrics,
	})
}

func (g *gateway) router() (http.Handler, error) {
	deps := api.Deps{
		Dispatcher: g.dispatcher,
		RPC:        g.rpc("http"),
		Metrics:    g.metrics,
		CORSOrigin: g.cfg.CORSOrigin,
		Logger:     g.logger,
	}
	if g.cfg.AuthJWTSecret != "" {
		signer, err := pkgauth.NewSigner(g.cfg.AuthJWTSecret)
		if err != nil {
			return nil, err
		}
		deps.Verifier = signer
	}
	return api.NewRouter(deps), nil
}
