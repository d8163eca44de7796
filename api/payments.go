package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/arthabank/artha/api/model"
)

func (a Api) RegisterVPA(c *gin.Context) {
	var newVPA model2.RegisterVPA
	if err := c.ShouldBindJSON(&newVPA); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newVPA.ValidateRegisterVPA(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	vpa, err := a.artha.RegisterVPA(c.Request.Context(), newVPA.AccountID, newVPA.Address)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vpa)
}

// ResolveVPA maps a virtual address to its backing account.
func (a Api) ResolveVPA(c *gin.Context) {
	address, passed := c.Params.Get("address")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required. pass address in the route /:address"})
		return
	}

	account, err := a.artha.ResolveVPA(c.Request.Context(), address)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":    address,
		"account_id": account.AccountID,
		"name":       account.Name,
	})
}

func (a Api) RemoveVPA(c *gin.Context) {
	address, passed := c.Params.Get("address")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required. pass address in the route /:address"})
		return
	}
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id query parameter is required"})
		return
	}

	if err := a.artha.RemoveVPA(c.Request.Context(), accountID, address); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "status": "removed"})
}

func (a Api) SetPrimaryVPA(c *gin.Context) {
	address, passed := c.Params.Get("address")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required. pass address in the route /:address"})
		return
	}
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id query parameter is required"})
		return
	}

	if err := a.artha.SetPrimaryVPA(c.Request.Context(), accountID, address); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "status": "primary"})
}

func (a Api) GetVPAsByAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	vpas, err := a.artha.GetVPAsByAccount(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vpas)
}

func (a Api) SetPIN(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var body model2.SetPIN
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateSetPIN(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.artha.SetPIN(c.Request.Context(), id, body.PIN); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "status": "pin_set"})
}

// AuthorizePayment moves money between two virtual addresses after the
// payer's PIN checks out.
func (a Api) AuthorizePayment(c *gin.Context) {
	var payment model2.AuthorizePayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := payment.ValidateAuthorizePayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txns, err := a.artha.AuthorizePayment(c.Request.Context(), payment.FromVPA, payment.ToVPA,
		payment.AmountMinor(), payment.Currency, payment.PIN, payment.Reference, payment.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txns)
}
