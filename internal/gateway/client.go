package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"payout-core/pkg/logger"
	"payout-core/pkg/monitor"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20

	idempotencyHeader = "X-Payout-Idempotency"

	opCreate = "create_payout"
	opFind   = "find_payout"
)

// Client Razorpay-X 风格的打款网关客户端
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient 创建网关客户端，httpClient 为空时按 cfg.Timeout 创建
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// CreatePayout 发起一笔打款
// 同一个 IdempotencyKey 重复调用时网关只会产生一笔转账
func (c *Client) CreatePayout(ctx context.Context, req TransferRequest) (*Outcome, error) {
	payload := payoutPayload{
		AccountNumber:     c.cfg.AccountNumber,
		FundAccountID:     req.FundAccountID,
		Amount:            ToMinorUnits(req.Amount),
		Currency:          c.cfg.Currency,
		Mode:              ModeFor(req.FundAccountType),
		Purpose:           c.cfg.Purpose,
		QueueIfLowBalance: c.cfg.QueueIfLowBalance,
		ReferenceID:       req.ReferenceID,
		Narration:         c.cfg.Narration,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(idempotencyHeader, req.IdempotencyKey)

	var entity payoutEntity
	if err := c.do(httpReq, opCreate, &entity); err != nil {
		return nil, err
	}
	return entity.outcome(), nil
}

// FindByReference 按 reference_id 查询已存在的打款，没有则返回 ErrNotFound
func (c *Client) FindByReference(ctx context.Context, referenceID string) (*Outcome, error) {
	q := url.Values{}
	q.Set("account_number", c.cfg.AccountNumber)
	q.Set("reference_id", referenceID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/payouts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build payout lookup: %w", err)
	}

	var list payoutCollection
	if err := c.do(httpReq, opFind, &list); err != nil {
		return nil, err
	}
	for _, item := range list.Items {
		if item.ReferenceID == referenceID && item.wellFormed() {
			return item.outcome(), nil
		}
	}
	return nil, ErrNotFound
}

// do 发送请求并按响应分类错误
// 2xx 解码到 out；结构化的 4xx 为 Rejected；其余均为 Transient
func (c *Client) do(req *http.Request, op string, out interface{}) (err error) {
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		kind := ""
		var gerr *Error
		if errors.As(err, &gerr) {
			kind = string(gerr.Kind)
		}
		monitor.Business.ObserveGateway(op, kind, time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("网关请求失败", zap.String("operation", op), zap.Error(err))
		return transient(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transient(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return transient(resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
		if v, ok := out.(interface{ wellFormed() bool }); ok && !v.wellFormed() {
			return transient(resp.StatusCode, errors.New("malformed payout response"))
		}
		return nil
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		return transient(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var eb errorBody
	if jsonErr := json.Unmarshal(raw, &eb); jsonErr != nil || eb.Error == nil ||
		(eb.Error.Code == "" && eb.Error.Description == "") {
		// 非结构化的错误响应 (如代理返回的 HTML)，无法确认网关是否受理
		return transient(resp.StatusCode, fmt.Errorf("unstructured error response %s", resp.Status))
	}
	desc := eb.Error.Description
	if eb.Error.Reason != "" {
		desc = desc + " (" + eb.Error.Reason + ")"
	}
	return &Error{
		Kind:        KindRejected,
		StatusCode:  resp.StatusCode,
		Code:        eb.Error.Code,
		Description: strings.TrimSpace(desc),
	}
}
