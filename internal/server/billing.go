package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/workfolio/workfolio/internal/billing/commerce"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
)

// HandleCommerceWebhook receives processor webhook deliveries. The raw
// body bytes go to the engine untouched; parsing happens only after the
// signature verifies.
func (s *Server) HandleCommerceWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader(commerce.SignatureHeader)
	if err := s.billingSvc.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleWebhookLiveness answers processor endpoint checks.
func (s *Server) HandleWebhookLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type syncChargeRequest struct {
	PlanKey  int    `json:"planKey"`
	Method   string `json:"method"`
	ChargeID string `json:"chargeId"`
}

// HandleSubscriptionSync is the client-initiated reconciliation poll.
func (s *Server) HandleSubscriptionSync(c *gin.Context) {
	team, ok := teamFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req syncChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	method, err := billingdomain.ParsePaymentMethod(req.Method)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	err = s.billingSvc.SyncCharge(c.Request.Context(), team, billingdomain.SyncChargeRequest{
		PlanKey:  billingdomain.PlanKey(req.PlanKey),
		Method:   method,
		ChargeID: req.ChargeID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type onChainRequest struct {
	PlanKey int `json:"planKey"`
}

// HandleOnChainPayment triggers the blocking on-chain purchase.
func (s *Server) HandleOnChainPayment(c *gin.Context) {
	team, ok := teamFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req onChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.billingSvc.PayOnChain(c.Request.Context(), team, billingdomain.PlanKey(req.PlanKey))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGetSubscription reports the caller's current entitlement.
func (s *Server) HandleGetSubscription(c *gin.Context) {
	team, ok := teamFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"teamId":    team.ID.String(),
		"planName":  team.PlanName,
		"paidUntil": team.PaidUntil,
	})
}
