package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/freshkart/api/internal/dto"
	"github.com/freshkart/api/internal/middleware"
	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
	"github.com/freshkart/api/internal/service"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) BulkPurchase(c *gin.Context) {
	var req dto.BulkPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"cart_items": "Cart items are required for bulk purchase."})
		return
	}

	picks := make([]model.CartPick, 0, len(req.CartItems))
	for _, p := range req.CartItems {
		picks = append(picks, model.CartPick{CartItemID: p.ID, Quantity: p.Quantity})
	}

	resp, err := h.svc.BulkPurchase(c.Request.Context(), middleware.GetUserID(c), picks)
	if err != nil {
		var missing *repository.CartItemMissingError
		switch {
		case errors.As(err, &missing):
			c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error()})
		case errors.Is(err, service.ErrNoCartItems), errors.Is(err, service.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	orders, err := h.svc.ListUserOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	if err := h.svc.CancelOwnOrder(c.Request.Context(), middleware.GetUserID(c), orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order canceled successfully."})
}

func (h *OrderHandler) AdminBoard(c *gin.Context) {
	resp, err := h.svc.AdminBoard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) GetByUniqueID(c *gin.Context) {
	resp, err := h.svc.GetByUniqueID(c.Request.Context(), c.Param("unique_id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("unique_id"), req.Status, req.DeliveryPartnerEmail)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"status": "invalid order status"})
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, service.ErrDeliveryPersonNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "delivery partner not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) ListByStatus(c *gin.Context) {
	orders, err := h.svc.ListByStatus(c.Request.Context(), model.OrderStatus(c.Param("category")))
	if err != nil {
		if errors.Is(err, model.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "invalid order status"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) NewOrders(c *gin.Context) {
	orders, err := h.svc.NewOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Payments(c *gin.Context) {
	orders, err := h.svc.Payments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
