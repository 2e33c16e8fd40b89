package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type ledgerRow struct {
	ID   int
	Note string
}

func openSQLite(t *testing.T, name string) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	client := openSQLite(t, "tx_commit")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Note: "kept"}).Error
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	client := openSQLite(t, "tx_rollback")
	boom := errors.New("boom")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Note: "dropped"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Note: "dropped"}).Error)
			panic("handler exploded")
		})
	})
	require.Zero(t, countRows(t, client))
}

func TestNewReportsDriver(t *testing.T) {
	client := openSQLite(t, "driver_name")
	require.Equal(t, config.DBDriverSQLite, client.Driver())
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, config.DBDriverSQLite, Wrap(client.DB()).Driver())
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "root@/shop"}, nil)
	require.ErrorContains(t, err, `unsupported database driver "mysql"`)
}
