package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/go-idempotent-payments/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-payments/internal/payments"
	"github.com/imrishuroy/go-idempotent-payments/internal/validation"
)

// Headers read or written by the payments API.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderCacheHit       = "X-Cache-Hit"
	HeaderRequestID      = "X-Request-Id"
)

// MessageChargeFailed is the coordinator failure message for this route.
const MessageChargeFailed = "Payment processing failed"

// Charger performs a charge. *payments.Service satisfies it.
type Charger interface {
	Charge(ctx context.Context, in payments.ChargeInput) (*payments.Result, error)
}

// HandlerConfig groups dependencies for the payments handler.
type HandlerConfig struct {
	Coordinator *idempotency.Coordinator
	Charger     Charger
	Logger      *slog.Logger
}

// RegisterPaymentsRoutes registers routes for the payments API.
func RegisterPaymentsRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "payments_handler"))

	r.POST("/process-payment", func(c *gin.Context) {
		ctx := c.Request.Context()

		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		// Generic form of the body, used for fingerprinting only.
		body, err := validation.ParseJSON(raw)
		switch {
		case errors.Is(err, validation.ErrEmptyBody):
			body = idempotency.NoBody
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		correlationID := c.GetHeader(HeaderRequestID)

		resp := cfg.Coordinator.Handle(ctx, key, body, func(opCtx context.Context) (idempotency.Outcome, error) {
			var req validation.ChargeRequest
			if problem, ok := validation.DecodeAndValidate(raw, &req, v); !ok {
				return idempotency.Outcome{StatusCode: http.StatusBadRequest, Body: problem}, nil
			}

			res, err := cfg.Charger.Charge(opCtx, payments.ChargeInput{
				Amount:         req.Amount,
				Currency:       req.Currency,
				IdempotencyKey: key,
				CorrelationID:  correlationID,
			})
			if err != nil {
				return idempotency.Outcome{}, err
			}
			return idempotency.Outcome{StatusCode: http.StatusCreated, Body: res}, nil
		})

		if resp.CacheHit {
			c.Header(HeaderCacheHit, "true")
		}
		if res, ok := resp.Body.(*payments.Result); ok && resp.StatusCode == http.StatusCreated {
			c.Header("Location", fmt.Sprintf("/payments/%s", res.TransactionID))
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Warn("payment request failed", slog.String("key", key), slog.Int("status", resp.StatusCode))
		}
		c.JSON(resp.StatusCode, resp.Body)
	})
}

// RegisterHealthRoutes registers the liveness probe.
func RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
