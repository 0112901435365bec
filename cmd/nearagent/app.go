package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"NEAR-Swarm/internal/agent"
	"NEAR-Swarm/internal/config"
	"NEAR-Swarm/internal/observability/metrics"
	"NEAR-Swarm/internal/storage/mysql"
	"NEAR-Swarm/internal/web3"
	xlog "NEAR-Swarm/pkg/logger"
)

// app 汇总一次命令执行所需的全部组件。
type app struct {
	cfg     *config.Config
	logs    *xlog.Logger
	logger  *slog.Logger
	journal mysql.ActionRepository
	agent   *agent.Agent
}

func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logs, err := xlog.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	a := &app{cfg: cfg, logs: logs, logger: logs.Named("nearagent")}

	networks, err := web3.LoadNetworkDefinitions(cfg.NetworksFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		a.Close()
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	journal, err := mysql.Open(ctx, cfg.Journal.Driver, cfg.Runtime.DataDir, mysql.Config{
		DSN:             cfg.Journal.DSN,
		MaxOpenConns:    cfg.Journal.MaxOpenConns,
		MaxIdleConns:    cfg.Journal.MaxIdleConns,
		ConnMaxLifetime: cfg.Journal.ConnMaxLifetime.Std(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.journal = journal

	ag, err := agent.New(ctx, cfg.Agent,
		agent.WithLogger(logs.Named("agent")),
		agent.WithAuditLogger(logs.Audit()),
		agent.WithJournal(journal),
		agent.WithNetworks(&networks),
		agent.WithRPCObserver(metrics.RPCObserver{}),
		agent.WithActionObserver(metrics.ActionObserver{}),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.agent = ag
	return a, nil
}

// Close 按创建的逆序释放资源。
func (a *app) Close() {
	if a.agent != nil {
		_ = a.agent.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("关闭动作日志失败", "error", err)
		}
	}
	_ = a.logs.Close()
}
