package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	model2 "github.com/arthabank/artha/api/model"
	"github.com/arthabank/artha/model"
)

func (a Api) RequestLoan(c *gin.Context) {
	var newLoan model2.RequestLoan
	if err := c.ShouldBindJSON(&newLoan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newLoan.ValidateRequestLoan(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	loan, err := a.artha.RequestLoan(c.Request.Context(), newLoan.ToLoan())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (a Api) GetLoan(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	loan, err := a.artha.GetLoan(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (a Api) GetLoansByAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	loans, err := a.artha.GetLoansByAccount(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// DisburseLoan activates a requested loan and credits its principal.
func (a Api) DisburseLoan(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var body model2.DisburseLoan
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateDisburseLoan(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	loan, err := a.artha.DisburseLoan(c.Request.Context(), id, body.Reference)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (a Api) GetAmortizationSchedule(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	schedule, err := a.artha.GetAmortizationSchedule(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (a Api) RepayInstallment(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var body model2.RepayInstallment
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateRepayInstallment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	installment, err := a.artha.RepayInstallment(c.Request.Context(), id, body.Sequence, body.Reference, body.Force)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, installment)
}

// QuoteEMI returns the EMI and total interest for prospective loan terms
// without creating anything.
func (a Api) QuoteEMI(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}
	rate, err := strconv.ParseFloat(c.Query("annual_rate"), 64)
	if err != nil || rate < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "annual_rate must be a non-negative number"})
		return
	}
	tenure, err := strconv.Atoi(c.Query("tenure_months"))
	if err != nil || tenure < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenure_months must be a positive integer"})
		return
	}
	currency := c.DefaultQuery("currency", "INR")

	principalMinor := model.ToMinorUnits(decimal.NewFromFloat(amount), currency)
	emi, totalInterest := a.artha.PreviewEMI(principalMinor, decimal.NewFromFloat(rate), tenure, currency)
	c.JSON(http.StatusOK, gin.H{
		"emi":            emi,
		"total_interest": totalInterest,
		"total_payable":  principalMinor + totalInterest,
	})
}
