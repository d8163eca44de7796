// Package api exposes the engine over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/arthabank/artha"
	"github.com/arthabank/artha/api/middleware"
	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/internal/apierror"
)

type Api struct {
	artha  *artha.Artha
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.GET("/accounts/number/:number", a.GetAccountByNumber)
	router.GET("/accounts", a.GetAllAccounts)
	router.POST("/accounts/:id/freeze", a.FreezeAccount)
	router.POST("/accounts/:id/unfreeze", a.UnfreezeAccount)
	router.GET("/accounts/:id/balances", a.GetBalances)
	router.GET("/accounts/:id/statement", a.GetStatement)
	router.GET("/accounts/:id/verify", a.VerifyLedger)

	router.POST("/transactions/credit", a.RecordCredit)
	router.POST("/transactions/debit", a.RecordDebit)
	router.POST("/transactions/transfer", a.RecordTransfer)
	router.GET("/transactions/:id", a.GetTransaction)

	router.POST("/loans", a.RequestLoan)
	router.GET("/loans/:id", a.GetLoan)
	router.POST("/loans/:id/disburse", a.DisburseLoan)
	router.GET("/loans/:id/schedule", a.GetAmortizationSchedule)
	router.POST("/loans/:id/repay", a.RepayInstallment)
	router.GET("/accounts/:id/loans", a.GetLoansByAccount)
	router.GET("/loans/quote", a.QuoteEMI)

	router.POST("/deposits/fixed", a.OpenFixedDeposit)
	router.POST("/deposits/recurring", a.OpenRecurringDeposit)
	router.GET("/deposits/:id", a.GetDeposit)
	router.POST("/deposits/:id/installments", a.PayRDInstallment)
	router.POST("/deposits/:id/mature", a.MatureDeposit)
	router.POST("/deposits/:id/break", a.BreakDeposit)
	router.GET("/accounts/:id/deposits", a.GetDepositsByAccount)

	router.POST("/vpas", a.RegisterVPA)
	router.GET("/vpas/:address", a.ResolveVPA)
	router.DELETE("/vpas/:address", a.RemoveVPA)
	router.POST("/vpas/:address/primary", a.SetPrimaryVPA)
	router.GET("/accounts/:id/vpas", a.GetVPAsByAccount)
	router.POST("/accounts/:id/pin", a.SetPIN)
	router.POST("/payments", a.AuthorizePayment)

	router.GET("/backup", a.BackupDB)
	router.GET("/backup-s3", a.BackupDBS3)

	return a.router
}

func NewAPI(engine *artha.Artha) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{artha: engine, router: r}
}

// handleError writes a response with the status mapped from the error code.
func handleError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}
