package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	billNumberUnavailable = "could not generate bill number, try again"
	grnNumberUnavailable  = "could not generate GRN number, try again"
)

type BillHandler struct {
	billing *service.BillingService
}

func NewBillHandler(billing *service.BillingService) *BillHandler {
	return &BillHandler{billing: billing}
}

// NextBillNumber previews the number the next saved bill will most likely get.
func (h *BillHandler) NextBillNumber(c *gin.Context) {
	n, err := h.billing.NextBillNumber(c.Request.Context())
	if err != nil {
		respondBillingError(c, err, billNumberUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextBillNo": n})
}

func (h *BillHandler) CreateBill(c *gin.Context) {
	var req service.CreateBillInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.billing.CreateBill(c.Request.Context(), req)
	if err != nil {
		respondBillingError(c, err, billNumberUnavailable)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *BillHandler) GetBill(c *gin.Context) {
	billNo, err := strconv.ParseInt(c.Param("billNo"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bill number"})
		return
	}

	bill, err := h.billing.GetBill(c.Request.Context(), billNo)
	if err != nil {
		respondBillingError(c, err, billNumberUnavailable)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *BillHandler) NextGRNNumber(c *gin.Context) {
	n, err := h.billing.NextGRNNumber(c.Request.Context())
	if err != nil {
		respondBillingError(c, err, grnNumberUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextGrnNo": n})
}

func (h *BillHandler) CreatePurchase(c *gin.Context) {
	var req service.CreatePurchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.billing.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		respondBillingError(c, err, grnNumberUnavailable)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *BillHandler) GetPurchase(c *gin.Context) {
	grnNo, err := strconv.ParseInt(c.Param("grnNo"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid GRN number"})
		return
	}

	purchase, err := h.billing.GetPurchase(c.Request.Context(), grnNo)
	if err != nil {
		respondBillingError(c, err, grnNumberUnavailable)
		return
	}
	c.JSON(http.StatusOK, purchase)
}
