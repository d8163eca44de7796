package artha

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/database"
)

func newTestArtha(t *testing.T) (*Artha, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ds := &database.Datasource{Conn: db, Cache: nil}
	engine, err := NewArtha(ds)
	require.NoError(t, err)
	return engine, mock, mr
}
