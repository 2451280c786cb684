package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type credentialsRequest struct {
	Username string `json:"username" form:"username" binding:"required,notblank,max=64"`
	Password string `json:"password" form:"password" binding:"required"`
	Next     string `json:"next" form:"next"`
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON
}

func (h *Handler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Next": c.Query("next")})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, req.Next, bindError(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	token, user, err := h.gate.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.loginFailed(c, req.Next, err)
		return
	}

	h.setSessionCookie(c, token)
	redirect := safeNext(req.Next)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"redirect": redirect,
			"user":     user,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

func (h *Handler) loginFailed(c *gin.Context, next string, err error) {
	if wantsJSON(c) {
		respondError(c, err)
		return
	}
	status, msg := errorResponse(c, err)
	c.HTML(status, "login.html", gin.H{"Next": next, "Error": msg})
}

func (h *Handler) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.registerFailed(c, bindError(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.gate.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.registerFailed(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, user)
		return
	}
	c.HTML(http.StatusCreated, "login.html", gin.H{"Notice": "Account created. Please log in."})
}

func (h *Handler) registerFailed(c *gin.Context, err error) {
	if wantsJSON(c) {
		respondError(c, err)
		return
	}
	status, msg := errorResponse(c, err)
	c.HTML(status, "register.html", gin.H{"Error": msg})
}

func (h *Handler) dashboard(c *gin.Context) {
	h.renderDashboard(c, http.StatusOK, "")
}

func (h *Handler) renderDashboard(c *gin.Context, status int, errMsg string) {
	ctx := c.Request.Context()

	disasters, err := h.store.ListDisasters(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	alerts, err := h.store.ListAlerts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.HTML(status, "dashboard.html", gin.H{
		"User":      identityFrom(c),
		"Disasters": disasters,
		"Alerts":    alerts,
		"Error":     errMsg,
	})
}

func (h *Handler) dashboardError(c *gin.Context, err error) {
	status, msg := errorResponse(c, err)
	h.renderDashboard(c, status, msg)
}

func (h *Handler) addDisaster(c *gin.Context) {
	var req disasterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.dashboardError(c, bindError(err))
		return
	}
	if _, err := h.saveDisaster(c, &req); err != nil {
		h.dashboardError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (h *Handler) addAlert(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBind(&req); err != nil {
		h.dashboardError(c, bindError(err))
		return
	}
	if _, err := h.saveAlert(c, &req); err != nil {
		h.dashboardError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context(), h.tokenFromRequest(c)); err != nil {
		slog.Warn("failed to delete session on logout", "error", err)
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, loginPath)
}
