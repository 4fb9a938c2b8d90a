package main

import (
	"context"
	"errors"
	"net/http"

	"sendmoney/pkg/transfer"

	"github.com/gin-gonic/gin"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthHandler)
	r.POST("/logout", logoutHandler)
	authGroup := r.Group("")
	authGroup.Use(sessionAuthMiddleware())
	authGroup.GET("/transfer", openTransferHandler)
	authGroup.GET("/transfer/:view", showTransferHandler)
	authGroup.POST("/transfer/:view", submitTransferHandler)
	authGroup.POST("/transfer/:view/fields/:field", updateFieldHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "views": views.Len()})
}

type pageData struct {
	ViewID string
	State  transfer.State
}

type stateResponse struct {
	ViewID string `json:"view"`
	transfer.State
	BalanceText string `json:"balanceText"`
}

// respond renders the page, or the bare state for JSON clients.
func respond(c *gin.Context, code int, viewID string, st transfer.State) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(code, stateResponse{ViewID: viewID, State: st, BalanceText: st.BalanceText()})
		return
	}
	pages.render(c, code, "transfer", pageData{ViewID: viewID, State: st})
}

// openTransferHandler starts a fresh send-money form and kicks off its balance load.
func openTransferHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}
	id, v := views.Open(user)
	// the load outlives this request
	v.Activate(context.WithoutCancel(c.Request.Context()), sessionFromContext(c))
	respond(c, http.StatusOK, id, v.State())
}

// lookupView finds the caller's view or answers 401/404 itself.
func lookupView(c *gin.Context) (string, *transfer.View, bool) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return "", nil, false
	}
	id := c.Param("view")
	v, ok := views.Get(id, user)
	if !ok {
		if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
			c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		} else {
			pages.render(c, http.StatusNotFound, "not_found", "This form has expired.")
		}
		return "", nil, false
	}
	return id, v, true
}

func showTransferHandler(c *gin.Context) {
	id, v, ok := lookupView(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, id, v.State())
}

// updateFieldHandler applies one keystroke-level change.
func updateFieldHandler(c *gin.Context) {
	id, v, ok := lookupView(c)
	if !ok {
		return
	}
	var req struct {
		Value *string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var st transfer.State
	switch c.Param("field") {
	case "receiver":
		st = v.SetReceiverAccountNumber(*req.Value)
	case "description":
		st = v.SetDescription(*req.Value)
	case "amount":
		// rejected keystrokes leave the stored amount as it was
		st, _ = v.SetAmount(*req.Value)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field"})
		return
	}
	respond(c, http.StatusOK, id, st)
}

type submitRequest struct {
	ReceiverAccountNumber *string `json:"receiverAccountNumber" form:"receiverAccountNumber"`
	Description           *string `json:"description" form:"description"`
	Amount                *string `json:"amount" form:"amount"`
}

// submitTransferHandler takes the whole form and submits it with the fields
// the client sent.
func submitTransferHandler(c *gin.Context) {
	id, v, ok := lookupView(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// a dropped connection must not cut a transfer in half
	st, err := v.SubmitForm(context.WithoutCancel(c.Request.Context()), sessionFromContext(c), transfer.Form{
		ReceiverAccountNumber: req.ReceiverAccountNumber,
		Description:           req.Description,
		Amount:                req.Amount,
	})
	if errors.Is(err, transfer.ErrSubmitInProgress) {
		respond(c, http.StatusConflict, id, st)
		return
	}
	respond(c, http.StatusOK, id, st)
}
