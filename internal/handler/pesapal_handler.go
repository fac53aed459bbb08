package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"bookstore/config"
	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/service"
	"bookstore/pkg/pesapal"

	"github.com/gin-gonic/gin"
)

type PesapalHandler struct {
	cfg       *config.Config
	orders    *service.OrderService
	reconcile *service.ReconcileService
	downloads *service.DownloadService
}

func NewPesapalHandler(
	cfg *config.Config,
	orders *service.OrderService,
	reconcile *service.ReconcileService,
	downloads *service.DownloadService,
) *PesapalHandler {
	return &PesapalHandler{cfg: cfg, orders: orders, reconcile: reconcile, downloads: downloads}
}

type createOrderRequest struct {
	BookID string `json:"bookId"`
	User   struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		Phone       string `json:"phone"`
		CountryCode string `json:"countryCode"`
	} `json:"user"`
}

// CreateOrder POST /api/pesapal/create-order
func (h *PesapalHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	if uid := middleware.GetUserID(c); uid != "" && uid != strings.TrimSpace(req.User.ID) {
		respondError(c, domain.Unauthorized("Session does not match user.id"))
		return
	}
	res, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		BookID: req.BookID,
		Buyer: service.Buyer{
			ID:          req.User.ID,
			Email:       req.User.Email,
			Name:        req.User.Name,
			Phone:       req.User.Phone,
			CountryCode: req.User.CountryCode,
		},
		Origin: h.requestOrigin(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"orderId":           res.OrderID,
		"orderTrackingId":   res.OrderTrackingID,
		"merchantReference": res.MerchantReference,
		"redirectUrl":       res.RedirectURL,
	})
}

// TransactionStatus GET /api/pesapal/transaction-status?orderTrackingId=
func (h *PesapalHandler) TransactionStatus(c *gin.Context) {
	st, err := h.reconcile.Status(c.Request.Context(), pesapal.Resolve(pesapal.FieldOrderTrackingID, c.Query))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": rawStatus(st)})
}

type verifyRequest struct {
	OrderTrackingID   string `json:"orderTrackingId"`
	OrderID           string `json:"orderId"`
	MerchantReference string `json:"merchantReference"`
}

// Verify POST /api/pesapal/verify
func (h *PesapalHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	res, err := h.reconcile.Verify(c.Request.Context(), service.VerifyInput{
		OrderTrackingID:   req.OrderTrackingID,
		OrderID:           req.OrderID,
		MerchantReference: req.MerchantReference,
		UserID:            middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"payment":       res.Payment,
		"status":        rawStatus(res.Status),
		"paymentStatus": res.PaymentStatus,
	})
}

// IPN GET /api/pesapal/ipn
// The gateway cannot act on an error body, so failures after validation are
// acknowledged with HTTP 200 and status 500 in the body.
func (h *PesapalHandler) IPN(c *gin.Context) {
	in := service.IPNInput{
		OrderTrackingID:   pesapal.Resolve(pesapal.FieldOrderTrackingID, c.Query),
		OrderID:           pesapal.Resolve(pesapal.FieldOrderID, c.Query),
		MerchantReference: pesapal.Resolve(pesapal.FieldMerchantReference, c.Query),
		NotificationType:  pesapal.Resolve(pesapal.FieldNotificationType, c.Query),
	}
	if in.NotificationType == "" {
		in.NotificationType = "IPNCHANGE"
	}
	ack := gin.H{
		"orderNotificationType":  in.NotificationType,
		"orderTrackingId":        in.OrderTrackingID,
		"orderMerchantReference": in.MerchantReference,
	}
	res, err := h.reconcile.HandleIPN(c.Request.Context(), in)
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": domain.PublicMessage(err)})
			return
		}
		log.Printf("[PESAPAL IPN] acknowledged with failure order_tracking_id=%s: %v", in.OrderTrackingID, err)
		ack["success"] = false
		ack["status"] = http.StatusInternalServerError
		c.JSON(http.StatusOK, ack)
		return
	}
	if !res.Matched {
		log.Printf("[PESAPAL IPN] orphan notification order_tracking_id=%s merchant_reference=%s order_id=%s",
			in.OrderTrackingID, in.MerchantReference, in.OrderID)
	}
	ack["success"] = true
	ack["status"] = http.StatusOK
	c.JSON(http.StatusOK, ack)
}

// Download GET /api/pesapal/download?orderId=
func (h *PesapalHandler) Download(c *gin.Context) {
	link, err := h.downloads.Link(c.Request.Context(), c.Query("orderId"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"orderId":  link.OrderID,
		"bookId":   link.BookID,
		"url":      link.URL,
		"coverUrl": link.CoverURL,
	})
}

// requestOrigin is the public origin used for callback and IPN URLs.
func (h *PesapalHandler) requestOrigin(c *gin.Context) string {
	if h.cfg != nil && h.cfg.Server.BaseURL != "" {
		return h.cfg.Server.BaseURL
	}
	if origin := strings.TrimRight(c.GetHeader("Origin"), "/"); origin != "" && origin != "null" {
		return origin
	}
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if c.Request.TLS == nil && strings.HasPrefix(c.Request.Host, "localhost") {
			scheme = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return scheme + "://" + host
}

// rawStatus returns the gateway body as received, falling back to the parsed struct.
func rawStatus(st *pesapal.TransactionStatus) any {
	if st == nil {
		return nil
	}
	if len(st.Raw) > 0 && json.Valid(st.Raw) {
		return st.Raw
	}
	return st
}

func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind.HTTPStatus() >= http.StatusInternalServerError {
		log.Printf("[PESAPAL] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"success": false, "error": domain.PublicMessage(err)})
}
