package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arthabank/artha"
	model2 "github.com/arthabank/artha/api/model"
	"github.com/arthabank/artha/model"
)

func (a Api) RecordCredit(c *gin.Context) {
	a.recordEntry(c, model.TypeDeposit, func(ctx *gin.Context, req artha.EntryRequest) (interface{}, error) {
		return a.artha.CreditAccount(ctx.Request.Context(), req)
	})
}

func (a Api) RecordDebit(c *gin.Context) {
	a.recordEntry(c, model.TypeWithdrawal, func(ctx *gin.Context, req artha.EntryRequest) (interface{}, error) {
		return a.artha.DebitAccount(ctx.Request.Context(), req)
	})
}

func (a Api) recordEntry(c *gin.Context, entryType model.TransactionType, apply func(*gin.Context, artha.EntryRequest) (interface{}, error)) {
	var newEntry model2.RecordEntry
	if err := c.ShouldBindJSON(&newEntry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newEntry.ValidateRecordEntry(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := apply(c, artha.EntryRequest{
		AccountID:   newEntry.AccountID,
		AmountMinor: newEntry.AmountMinor(),
		Currency:    newEntry.Currency,
		Reference:   newEntry.Reference,
		Type:        entryType,
		Description: newEntry.Description,
		MetaData:    newEntry.MetaData,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecordTransfer applies an atomic debit/credit pair between two accounts.
func (a Api) RecordTransfer(c *gin.Context) {
	var newTransfer model2.CreateTransfer
	if err := c.ShouldBindJSON(&newTransfer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newTransfer.ValidateCreateTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	entries, err := a.artha.Transfer(c.Request.Context(), newTransfer.FromAccountID, newTransfer.ToAccountID, artha.EntryRequest{
		AmountMinor: newTransfer.AmountMinor(),
		Currency:    newTransfer.Currency,
		Reference:   newTransfer.Reference,
		Type:        model.TypeTransfer,
		Description: newTransfer.Description,
		MetaData:    newTransfer.MetaData,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entries)
}

func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	txn, err := a.artha.GetTransaction(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}
