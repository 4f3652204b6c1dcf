package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/service"
)

type ratingRequest struct {
	Rating int `json:"rating"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (g *Gateway) listProducts(c *gin.Context) {
	q := service.ProductQuery{
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		Brand:      c.Query("brand"),
		MinPrice:   queryFloat(c, "minPrice"),
		MaxPrice:   queryFloat(c, "maxPrice"),
		IsActive:   queryBool(c, "isActive"),
		IsFeatured: queryBool(c, "isFeatured"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	}
	list, err := g.services.Products.List(c.Request.Context(), q)
	if err != nil {
		g.fail(c, err)
		return
	}
	respondPage(c, list.Products, list.Pagination)
}

func (g *Gateway) getProduct(c *gin.Context) {
	product, err := g.services.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) getProductDetails(c *gin.Context) {
	product, err := g.services.Products.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var req service.ProductInput
	if !g.bind(c, &req) {
		return
	}
	product, err := g.services.Products.Create(c.Request.Context(), req, callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var req service.ProductPatch
	if !g.bind(c, &req) {
		return
	}
	product, err := g.services.Products.Update(c.Request.Context(), c.Param("id"), req, callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	if err := g.services.Products.SoftDelete(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "Product deleted successfully")
}

func (g *Gateway) hardDeleteProduct(c *gin.Context) {
	if err := g.services.Products.HardDelete(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "Product permanently deleted")
}

func (g *Gateway) rateProduct(c *gin.Context) {
	var req ratingRequest
	if !g.bind(c, &req) {
		return
	}
	product, err := g.services.Products.Rate(c.Request.Context(), c.Param("id"), callerID(c), req.Rating)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) listReviews(c *gin.Context) {
	reviews, err := g.services.Products.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, reviews)
}

func (g *Gateway) upsertReview(c *gin.Context) {
	var req reviewRequest
	if !g.bind(c, &req) {
		return
	}
	reviews, err := g.services.Products.UpsertReview(c.Request.Context(), c.Param("id"), callerID(c), req.Rating, req.Comment)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, reviews)
}

func (g *Gateway) deleteReview(c *gin.Context) {
	err := g.services.Products.DeleteReview(c.Request.Context(), c.Param("id"), callerID(c), c.Param("reviewId"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "Review deleted successfully")
}
