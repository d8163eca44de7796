package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

func TestCreateVPAFirstIsPrimary(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT account_id FROM artha.accounts")).
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc_1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM artha.virtual_addresses")).
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.virtual_addresses")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := ds.CreateVPA(context.Background(), model.VirtualAddress{
		Address:   "ravi@artha",
		AccountID: "acc_1",
	})
	require.NoError(t, err)
	assert.True(t, created.Primary)
	assert.NotEmpty(t, created.VPAID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVPACapReached(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT account_id FROM artha.accounts")).
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc_1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM artha.virtual_addresses")).
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(model.MaxVPAsPerAccount))
	mock.ExpectRollback()

	_, err := ds.CreateVPA(context.Background(), model.VirtualAddress{
		Address:   "ravi.fourth@artha",
		AccountID: "acc_1",
	})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteVPAPrimaryWithAlternatesRejected(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_primary FROM artha.virtual_addresses")).
		WithArgs("acc_1", "ravi@artha").
		WillReturnRows(sqlmock.NewRows([]string{"is_primary"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM artha.virtual_addresses")).
		WithArgs("acc_1", "ravi@artha").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := ds.DeleteVPA(context.Background(), "acc_1", "ravi@artha")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteVPALastPrimaryAllowed(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_primary FROM artha.virtual_addresses")).
		WithArgs("acc_1", "ravi@artha").
		WillReturnRows(sqlmock.NewRows([]string{"is_primary"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM artha.virtual_addresses")).
		WithArgs("acc_1", "ravi@artha").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM artha.virtual_addresses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := ds.DeleteVPA(context.Background(), "acc_1", "ravi@artha")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPrimaryVPA(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_primary = TRUE")).
		WithArgs("acc_1", "ravi.alt@artha").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_primary = FALSE")).
		WithArgs("acc_1", "ravi.alt@artha").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := ds.SetPrimaryVPA(context.Background(), "acc_1", "ravi.alt@artha")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
