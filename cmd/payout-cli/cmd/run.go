package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"payout-core/internal/bootstrap"
	"payout-core/internal/service/payout"
)

// runCmd 执行一次完整结算 (恢复 + 选择 + 打款)
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行一次结算",
	Long:  `恢复遗留的 pending 预留，然后为达到阈值的创作者发起打款并对账。Ctrl+C 会在当前创作者处理完之后停止。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, false)
	},
}

// recoverCmd 只执行恢复流程
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "只恢复遗留的 pending 预留",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, true)
	},
}

func execute(cmd *cobra.Command, recoveryOnly bool) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.close()

	orchestrator, err := bootstrap.Orchestrator(rt.db, rt.cfg)
	if err != nil {
		return err
	}
	scheduler := bootstrap.Scheduler(orchestrator, rt.rdb, rt.cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summary *payout.Summary
	if recoveryOnly {
		summary, err = scheduler.Recover(ctx, payout.TriggerCLI)
	} else {
		summary, err = scheduler.Trigger(ctx, payout.TriggerCLI)
	}
	if summary != nil {
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recoverCmd)
}
