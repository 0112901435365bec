package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"NEAR-Swarm/internal/agent"
	"NEAR-Swarm/internal/api"
	"NEAR-Swarm/internal/auth"

	"github.com/spf13/cobra"
)

const envConfig = "NEAR_SWARM_CONFIG"

// main 是 NEAR 智能体命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "nearagent",
		Short:         "nearagent - NEAR blockchain agent",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(envConfig), "配置文件路径 (YAML 或 JSON)")

	load := func(cmd *cobra.Command) (*app, error) {
		return bootstrap(cmd.Context(), configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newBalanceCmd(load),
		newCheckCmd(load),
		newSendCmd(load),
	)
	return root
}

type loader func(cmd *cobra.Command) (*app, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the agent and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			authSvc, err := auth.NewService(a.cfg.Server.Auth, a.logs.Audit())
			if err != nil {
				return err
			}
			if err := a.agent.Start(cmd.Context()); err != nil {
				return err
			}
			server := api.NewServer(a.cfg.Server.Address, a.agent,
				api.WithLogger(a.logs.Named("api")),
				api.WithMetrics(*a.cfg.Server.MetricsEnabled),
				api.WithRequestTimeout(a.cfg.Server.RequestTimeout.Std()),
				api.WithAuth(authSvc),
			)
			if err := server.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("nearagent 已退出")
			return nil
		},
	}
}

func newBalanceCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the agent account balance in yoctoNEAR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			balance, err := a.agent.Balance(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balance)
		},
	}
}

func newCheckCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "check [account]",
		Short: "Report whether an account exists (defaults to the agent account)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			accountID := a.agent.Config().AccountID
			if len(args) == 1 {
				accountID = args[0]
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"account_id": accountID,
				"exists":     a.agent.CheckAccount(cmd.Context(), accountID),
			})
		},
	}
}

func newSendCmd(load loader) *cobra.Command {
	var receiver, actionsJSON string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign and submit a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var actions []any
			if err := json.Unmarshal([]byte(actionsJSON), &actions); err != nil {
				return fmt.Errorf("解析 --actions 失败: %w", err)
			}

			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.agent.Start(cmd.Context()); err != nil {
				return err
			}
			result, err := a.agent.ExecuteAction(cmd.Context(), agent.Action{
				Type:   agent.ActionTransaction,
				Params: map[string]any{"receiver_id": receiver, "actions": actions},
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&receiver, "receiver", "", "接收方账户")
	cmd.Flags().StringVar(&actionsJSON, "actions", "[]", `动作列表, 例如 '[{"type":"transfer","deposit":"1"}]'`)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
