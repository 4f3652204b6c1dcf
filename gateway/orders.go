package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/service"
)

type paymentOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type orderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (g *Gateway) createPaymentOrder(c *gin.Context) {
	var req paymentOrderRequest
	if !g.bind(c, &req) {
		return
	}
	order, err := g.services.Orders.CreatePaymentOrder(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (g *Gateway) verifyPayment(c *gin.Context) {
	var req service.VerifyPaymentInput
	if !g.bind(c, &req) {
		return
	}
	order, err := g.services.Orders.VerifyPayment(c.Request.Context(), req, callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{Success: true, Message: "Payment verified and order created", Data: order})
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.services.Orders.ListMine(c.Request.Context(), callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.services.Orders.GetOne(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if !g.bind(c, &req) {
		return
	}
	order, err := g.services.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.OrderStatus, currentUser(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}
