package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"payout-core/internal/bootstrap"
	"payout-core/internal/service"
)

// eventsCmd 订阅打款事件并输出通知
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "订阅打款事件 (运营通知)",
	Long:  `以消费者组方式订阅 payout_events，打款被拒绝时输出告警日志。Ctrl+C 退出。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")
		name, _ := cmd.Flags().GetString("name")

		rt, err := setup(false)
		if err != nil {
			return err
		}
		defer rt.close()

		consumer, err := bootstrap.Consumer(rt.cfg, rt.rdb, group, name)
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return service.NewNotifyService(consumer, rt.cfg.Kafka.Topic).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("group", "payout_notify", "消费者组")
	eventsCmd.Flags().String("name", "notify-0", "消费者名称 (Redis Streams)")
}
