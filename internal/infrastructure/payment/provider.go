package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/xiebiao/eshop/internal/domain/payment"
	"github.com/xiebiao/eshop/internal/infrastructure/config"
	"github.com/xiebiao/eshop/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/eshop/pkg/errors"
)

const providerSuccessCode = "00"

// providerResponse 网关统一响应信封
type providerResponse struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// Client 支付网关HTTP客户端
// 设计说明:
// 1. 所有调用受config.Payment.RequestTimeout约束,慢网关不拖垮下单
// 2. 熔断器包住每次调用:网关连续故障时快速失败,
//    由上层决定降级(下单报错回滚/查询退化为本地状态)
// 3. 每个请求带uuid请求号,便于与网关侧对账排查
type Client struct {
	baseURL  string
	clientID string
	apiKey   string
	signer   *Signer
	http     *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger

	returnURL string
	cancelURL string
}

// NewClient 创建网关客户端
func NewClient(cfg config.PaymentConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		clientID:  cfg.ClientID,
		apiKey:    cfg.APIKey,
		signer:    NewSigner(cfg.ChecksumSecret),
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		breaker:   circuitbreaker.New("payment-gateway", circuitbreaker.DefaultConfig()),
		logger:    logger,
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
	}
}

// Signer 暴露签名器(Webhook验签使用同一密钥与规范化逻辑)
func (c *Client) Signer() *Signer {
	return c.signer
}

// CreatePaymentLink 创建支付链接
func (c *Client) CreatePaymentLink(ctx context.Context, req domain.LinkRequest) (*domain.Link, error) {
	signature := c.signer.Sign(map[string]string{
		"orderCode":   strconv.FormatInt(req.OrderCode, 10),
		"amount":      strconv.FormatInt(req.Amount, 10),
		"description": req.Description,
		"returnUrl":   c.returnURL,
		"cancelUrl":   c.cancelURL,
	})

	body := map[string]interface{}{
		"orderCode":   req.OrderCode,
		"amount":      req.Amount,
		"description": req.Description,
		"returnUrl":   c.returnURL,
		"cancelUrl":   c.cancelURL,
		"signature":   signature,
	}

	var link domain.Link
	if err := c.call(ctx, http.MethodPost, "/v2/payment-requests", body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// CancelPaymentLink 取消支付链接(尽力而为,调用方容忍失败)
func (c *Client) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	path := fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode)
	body := map[string]interface{}{
		"cancellationReason": reason,
	}
	return c.call(ctx, http.MethodPost, path, body, nil)
}

// GetPaymentStatus 查询支付单状态
func (c *Client) GetPaymentStatus(ctx context.Context, orderCode int64) (*domain.StatusInfo, error) {
	path := fmt.Sprintf("/v2/payment-requests/%d", orderCode)

	var info domain.StatusInfo
	if err := c.call(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call 发起一次网关调用(熔断器包裹),out非nil时解码data字段
func (c *Client) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	err := c.breaker.Execute(func() error {
		return c.doRequest(ctx, method, path, body, out)
	})
	if err != nil {
		if err == circuitbreaker.ErrOpenState || err == circuitbreaker.ErrTooManyProbes {
			c.logger.Warn("支付网关熔断中", zap.String("path", path))
			return apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "支付服务暂时不可用")
		}
		return err
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, "序列化网关请求失败")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, "构建网关请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("支付网关请求失败",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "支付服务暂时不可用")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "读取网关响应失败")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("支付网关返回非200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return apperrors.Newf(apperrors.ErrCodePaymentProvider, "支付网关响应异常: HTTP %d", resp.StatusCode)
	}

	var envelope providerResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "解析网关响应失败")
	}
	if envelope.Code != providerSuccessCode {
		return apperrors.Newf(apperrors.ErrCodePaymentProvider, "支付网关拒绝请求: %s %s", envelope.Code, envelope.Desc)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.WrapCode(apperrors.ErrCodePaymentProvider, err, "解析网关数据失败")
		}
	}
	return nil
}
