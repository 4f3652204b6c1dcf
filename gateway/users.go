package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type profilePhotoRequest struct {
	PhotoURL string `json:"photoURL"`
}

func (g *Gateway) register(c *gin.Context) {
	var req service.RegisterInput
	if !g.bind(c, &req) {
		return
	}
	res, err := g.services.Users.Register(c.Request.Context(), req)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if !g.bind(c, &req) {
		return
	}
	res, err := g.services.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (g *Gateway) logout(c *gin.Context) {
	if err := g.services.Users.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "Logged out successfully")
}

func (g *Gateway) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !g.bind(c, &req) {
		return
	}
	if err := g.services.Users.ChangePassword(c.Request.Context(), callerID(c), req.CurrentPassword, req.NewPassword); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "Password updated successfully")
}

func (g *Gateway) me(c *gin.Context) {
	user, err := g.services.Users.Me(c.Request.Context(), callerID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (g *Gateway) updateProfilePhoto(c *gin.Context) {
	var req profilePhotoRequest
	if !g.bind(c, &req) {
		return
	}
	user, err := g.services.Users.UpdateProfilePhoto(c.Request.Context(), callerID(c), req.PhotoURL)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (g *Gateway) listUsers(c *gin.Context) {
	q := service.UserQuery{
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		IsActive: queryBool(c, "isActive"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
	list, err := g.services.Users.List(c.Request.Context(), q)
	if err != nil {
		g.fail(c, err)
		return
	}
	respondPage(c, list.Users, list.Pagination)
}

func (g *Gateway) createUser(c *gin.Context) {
	var req service.RegisterInput
	if !g.bind(c, &req) {
		return
	}
	user, err := g.services.Users.Create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (g *Gateway) getUser(c *gin.Context) {
	user, err := g.services.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (g *Gateway) updateUser(c *gin.Context) {
	var req service.UserPatch
	if !g.bind(c, &req) {
		return
	}
	user, err := g.services.Users.Update(c.Request.Context(), c.Param("id"), req, currentUser(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (g *Gateway) deleteUser(c *gin.Context) {
	if err := g.services.Users.SoftDelete(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "User deactivated successfully")
}

func (g *Gateway) hardDeleteUser(c *gin.Context) {
	if err := g.services.Users.HardDelete(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		g.fail(c, err)
		return
	}
	respondMessage(c, "User permanently deleted")
}

func (g *Gateway) userAuditTrail(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	logs, err := g.services.Users.AuditTrail(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, logs)
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryBool(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
