package payout

import (
	"time"

	"github.com/shopspring/decimal"

	"payout-core/internal/model"
)

// 触发方式
const (
	TriggerCron = "cron"
	TriggerCLI  = "cli"
	TriggerAPI  = "api"
)

// Summary 单次运行汇总
type Summary struct {
	RunID          string          `json:"run_id"`
	Trigger        string          `json:"trigger"`
	Selected       int             `json:"selected"`
	Processed      int             `json:"processed"`
	Queued         int             `json:"queued"`
	Rejected       int             `json:"rejected"`
	Failed         int             `json:"failed"`
	Skipped        int             `json:"skipped"`
	Errored        int             `json:"errored"`
	Recovered      int             `json:"recovered"`
	Stuck          int             `json:"stuck"`
	ProcessedTotal decimal.Decimal `json:"processed_total"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// record 累计一次对账结果
func (s *Summary) record(status string, amount decimal.Decimal) {
	switch status {
	case model.PayoutProcessed:
		s.Processed++
		s.ProcessedTotal = s.ProcessedTotal.Add(amount)
	case model.PayoutQueued:
		s.Queued++
	case model.PayoutRejected:
		s.Rejected++
	case model.PayoutFailed:
		s.Failed++
	}
}

// Duration 运行耗时
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *Summary) toModel() *model.PayoutRun {
	return &model.PayoutRun{
		RunID:          s.RunID,
		Trigger:        s.Trigger,
		Selected:       s.Selected,
		Processed:      s.Processed,
		Queued:         s.Queued,
		Rejected:       s.Rejected,
		Failed:         s.Failed,
		Skipped:        s.Skipped,
		Errored:        s.Errored,
		Recovered:      s.Recovered,
		Stuck:          s.Stuck,
		ProcessedTotal: s.ProcessedTotal,
		Error:          s.Error,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
	}
}
