package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/arthabank/artha/api/model"
)

func (a Api) OpenFixedDeposit(c *gin.Context) {
	var newDeposit model2.OpenFixedDeposit
	if err := c.ShouldBindJSON(&newDeposit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newDeposit.ValidateOpenFixedDeposit(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	deposit, err := a.artha.OpenFixedDeposit(c.Request.Context(), newDeposit.ToDeposit(), newDeposit.Reference)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deposit)
}

func (a Api) OpenRecurringDeposit(c *gin.Context) {
	var newDeposit model2.OpenRecurringDeposit
	if err := c.ShouldBindJSON(&newDeposit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newDeposit.ValidateOpenRecurringDeposit(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	deposit, err := a.artha.OpenRecurringDeposit(c.Request.Context(), newDeposit.ToDeposit())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deposit)
}

func (a Api) GetDeposit(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	deposit, err := a.artha.GetDeposit(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposit)
}

func (a Api) GetDepositsByAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	deposits, err := a.artha.GetDepositsByAccount(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposits)
}

func (a Api) PayRDInstallment(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var body model2.PayRDInstallment
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidatePayRDInstallment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.artha.PayRDInstallment(c.Request.Context(), id, body.Period, body.Reference); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit_id": id, "period": body.Period, "status": "paid"})
}

// MatureDeposit pays out a deposit that has reached its maturity date.
func (a Api) MatureDeposit(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.artha.MatureDeposit(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	deposit, err := a.artha.GetDeposit(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposit)
}

// BreakDeposit terminates a deposit before maturity and refunds the
// penalised principal.
func (a Api) BreakDeposit(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	refund, err := a.artha.BreakDeposit(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit_id": id, "refund": refund, "status": "broken"})
}
