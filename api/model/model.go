// Package model holds the API request shapes and their validation rules.
// Amounts cross the API as decimal strings or numbers in major units and are
// converted to minor units at the boundary.
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/arthabank/artha/model"
)

type CreateAccount struct {
	Name       string                 `json:"name"`
	IdentityID string                 `json:"identity_id"`
	Currency   string                 `json:"currency"`
	MetaData   map[string]interface{} `json:"meta_data"`
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Currency, validation.Required, validation.Length(3, 3)),
	)
}

func (a *CreateAccount) ToAccount() model.Account {
	return model.Account{
		Name:       a.Name,
		IdentityID: a.IdentityID,
		MetaData:   a.MetaData,
	}
}

type RecordEntry struct {
	AccountID   string                 `json:"account_id"`
	Amount      float64                `json:"amount"`
	Currency    string                 `json:"currency"`
	Reference   string                 `json:"reference"`
	Description string                 `json:"description"`
	MetaData    map[string]interface{} `json:"meta_data"`
}

func (e *RecordEntry) ValidateRecordEntry() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.AccountID, validation.Required),
		validation.Field(&e.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&e.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&e.Reference, validation.Required),
	)
}

// AmountMinor converts the major-unit request amount to minor units with
// half-up rounding.
func (e *RecordEntry) AmountMinor() int64 {
	return model.ToMinorUnits(decimal.NewFromFloat(e.Amount), e.Currency)
}

type CreateTransfer struct {
	FromAccountID string                 `json:"from_account_id"`
	ToAccountID   string                 `json:"to_account_id"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	Reference     string                 `json:"reference"`
	Description   string                 `json:"description"`
	MetaData      map[string]interface{} `json:"meta_data"`
}

func (t *CreateTransfer) ValidateCreateTransfer() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.FromAccountID, validation.Required),
		validation.Field(&t.ToAccountID, validation.Required),
		validation.Field(&t.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&t.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&t.Reference, validation.Required),
	)
}

func (t *CreateTransfer) AmountMinor() int64 {
	return model.ToMinorUnits(decimal.NewFromFloat(t.Amount), t.Currency)
}

type RequestLoan struct {
	AccountID     string  `json:"account_id"`
	Amount        float64 `json:"amount"`
	AnnualRate    float64 `json:"annual_rate"`
	TenureMonths  int     `json:"tenure_months"`
	Currency      string  `json:"currency"`
	ProofOfIncome bool    `json:"proof_of_income"`
	TermsAccepted bool    `json:"terms_accepted"`
}

func (l *RequestLoan) ValidateRequestLoan() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.AccountID, validation.Required),
		validation.Field(&l.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&l.AnnualRate, validation.Min(0.0)),
		validation.Field(&l.TenureMonths, validation.Required, validation.Min(1), validation.Max(360)),
		validation.Field(&l.Currency, validation.Required, validation.Length(3, 3)),
	)
}

func (l *RequestLoan) ToLoan() model.Loan {
	return model.Loan{
		AccountID:      l.AccountID,
		Currency:       l.Currency,
		PrincipalMinor: model.ToMinorUnits(decimal.NewFromFloat(l.Amount), l.Currency),
		AnnualRate:     decimal.NewFromFloat(l.AnnualRate),
		TenureMonths:   l.TenureMonths,
		ProofOfIncome:  l.ProofOfIncome,
		TermsAccepted:  l.TermsAccepted,
	}
}

type DisburseLoan struct {
	Reference string `json:"reference"`
}

func (d *DisburseLoan) ValidateDisburseLoan() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Reference, validation.Required),
	)
}

type RepayInstallment struct {
	Sequence  int    `json:"sequence"`
	Reference string `json:"reference"`
	Force     bool   `json:"force"`
}

func (r *RepayInstallment) ValidateRepayInstallment() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Sequence, validation.Required, validation.Min(1)),
		validation.Field(&r.Reference, validation.Required),
	)
}

type OpenFixedDeposit struct {
	AccountID    string  `json:"account_id"`
	Amount       float64 `json:"amount"`
	AnnualRate   float64 `json:"annual_rate"`
	TenureMonths int     `json:"tenure_months"`
	Currency     string  `json:"currency"`
	Reference    string  `json:"reference"`
}

func (d *OpenFixedDeposit) ValidateOpenFixedDeposit() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.AccountID, validation.Required),
		validation.Field(&d.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&d.AnnualRate, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&d.TenureMonths, validation.Required, validation.Min(1), validation.Max(120)),
		validation.Field(&d.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&d.Reference, validation.Required),
	)
}

func (d *OpenFixedDeposit) ToDeposit() model.Deposit {
	return model.Deposit{
		AccountID:      d.AccountID,
		Currency:       d.Currency,
		PrincipalMinor: model.ToMinorUnits(decimal.NewFromFloat(d.Amount), d.Currency),
		AnnualRate:     decimal.NewFromFloat(d.AnnualRate),
		TenureMonths:   d.TenureMonths,
	}
}

type OpenRecurringDeposit struct {
	AccountID         string  `json:"account_id"`
	InstallmentAmount float64 `json:"installment_amount"`
	AnnualRate        float64 `json:"annual_rate"`
	TenureMonths      int     `json:"tenure_months"`
	Currency          string  `json:"currency"`
}

func (d *OpenRecurringDeposit) ValidateOpenRecurringDeposit() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.AccountID, validation.Required),
		validation.Field(&d.InstallmentAmount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&d.AnnualRate, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&d.TenureMonths, validation.Required, validation.Min(1), validation.Max(120)),
		validation.Field(&d.Currency, validation.Required, validation.Length(3, 3)),
	)
}

func (d *OpenRecurringDeposit) ToDeposit() model.Deposit {
	return model.Deposit{
		AccountID:      d.AccountID,
		Currency:       d.Currency,
		PrincipalMinor: model.ToMinorUnits(decimal.NewFromFloat(d.InstallmentAmount), d.Currency),
		AnnualRate:     decimal.NewFromFloat(d.AnnualRate),
		TenureMonths:   d.TenureMonths,
	}
}

type PayRDInstallment struct {
	Period    int    `json:"period"`
	Reference string `json:"reference"`
}

func (p *PayRDInstallment) ValidatePayRDInstallment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Period, validation.Required, validation.Min(1)),
		validation.Field(&p.Reference, validation.Required),
	)
}

type RegisterVPA struct {
	AccountID string `json:"account_id"`
	Address   string `json:"address"`
}

func (v *RegisterVPA) ValidateRegisterVPA() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.AccountID, validation.Required),
		validation.Field(&v.Address, validation.Required),
	)
}

type SetPIN struct {
	PIN string `json:"pin"`
}

func (s *SetPIN) ValidateSetPIN() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.PIN, validation.Required, validation.Length(6, 6)),
	)
}

type AuthorizePayment struct {
	FromVPA     string  `json:"from_vpa"`
	ToVPA       string  `json:"to_vpa"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	PIN         string  `json:"pin"`
	Reference   string  `json:"reference"`
	Description string  `json:"description"`
}

func (p *AuthorizePayment) ValidateAuthorizePayment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.FromVPA, validation.Required),
		validation.Field(&p.ToVPA, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&p.PIN, validation.Required, validation.Length(6, 6)),
		validation.Field(&p.Reference, validation.Required),
	)
}

func (p *AuthorizePayment) AmountMinor() int64 {
	return model.ToMinorUnits(decimal.NewFromFloat(p.Amount), p.Currency)
}
