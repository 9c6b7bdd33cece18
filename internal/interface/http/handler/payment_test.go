package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/eshop/internal/domain/payment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubVerifier 固定验签结果
type stubVerifier struct {
	ok bool
}

func (v stubVerifier) VerifyWebhook(*payment.WebhookPayload) bool { return v.ok }

func postWebhook(t *testing.T, h *PaymentHandler, body interface{}) (*httptest.ResponseRecorder, webhookAck) {
	t.Helper()

	r := gin.New()
	r.POST("/webhook", h.Webhook)

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var ackBody webhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ackBody))
	return w, ackBody
}

// 回调契约:业务拒绝不需要网关重发,所以除传输层故障外一律应答成功
func TestPaymentHandler_Webhook_AlwaysAcks(t *testing.T) {
	t.Run("签名校验失败", func(t *testing.T) {
		h := NewPaymentHandler(nil, stubVerifier{ok: false}, nil, zap.NewNop())

		w, ackBody := postWebhook(t, h, &payment.WebhookPayload{
			Code:    "00",
			Success: true,
			Data:    payment.WebhookData{OrderCode: 17254321001, Amount: 58000, Reference: "FT2026001"},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "00", ackBody.Code)
	})

	t.Run("非支付成功事件被忽略", func(t *testing.T) {
		h := NewPaymentHandler(nil, stubVerifier{ok: true}, nil, zap.NewNop())

		w, ackBody := postWebhook(t, h, &payment.WebhookPayload{
			Code:    "01",
			Success: false,
			Data:    payment.WebhookData{OrderCode: 17254321001, Code: "01", Desc: "cancelled"},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "00", ackBody.Code)
	})

	t.Run("载荷解析失败", func(t *testing.T) {
		h := NewPaymentHandler(nil, stubVerifier{ok: true}, nil, zap.NewNop())

		w, ackBody := postWebhook(t, h, "{not-json")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "00", ackBody.Code)
	})
}
