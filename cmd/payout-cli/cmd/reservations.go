package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"payout-core/internal/model"
	"payout-core/internal/service/payout"
)

// reservationsCmd 列出预留记录
var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "查看打款预留",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		if status != "" && status != model.ReservationPending && status != model.ReservationResolved {
			return fmt.Errorf("未知状态 %q (pending|resolved)", status)
		}

		rt, err := setup(false)
		if err != nil {
			return err
		}
		defer rt.close()

		items, err := payout.NewQuery(rt.db).Reservations(cmd.Context(), status, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATOR\tAMOUNT\tREFERENCE\tSTATUS\tATTEMPTS\tLAST_ERROR")
		for _, r := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.CreatorID, r.Amount.StringFixed(2), r.ReferenceID, r.Status, r.Attempts, r.LastError)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(reservationsCmd)
	reservationsCmd.Flags().String("status", model.ReservationPending, "按状态过滤 (pending|resolved，空表示全部)")
	reservationsCmd.Flags().Int("limit", 50, "最多显示条数")
}
