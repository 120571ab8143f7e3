// Package repotest opens migrated in-memory databases for repository tests.
package repotest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/migrate"
)

// OpenSQLite returns a gorm handle on a private in-memory sqlite database with
// every embedded migration applied. The database lives until the test ends.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000", name)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection serialises writers, which sqlite requires anyway
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrate.Run(context.Background(), sqlDB, config.DriverSQLite, "", "up"))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}
