package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (g *Gateway) getCart(c *gin.Context) {
	cart, err := g.services.Carts.Get(c.Request.Context(), callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (g *Gateway) addToCart(c *gin.Context) {
	var req cartItemRequest
	if !g.bind(c, &req) {
		return
	}
	cart, err := g.services.Carts.Add(c.Request.Context(), callerID(c), req.ProductID, req.Quantity)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	var req cartItemRequest
	if !g.bind(c, &req) {
		return
	}
	cart, err := g.services.Carts.UpdateItem(c.Request.Context(), callerID(c), req.ProductID, req.Quantity)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (g *Gateway) removeFromCart(c *gin.Context) {
	cart, err := g.services.Carts.RemoveItem(c.Request.Context(), callerID(c), c.Param("productId"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (g *Gateway) clearCart(c *gin.Context) {
	cart, err := g.services.Carts.Clear(c.Request.Context(), callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}
