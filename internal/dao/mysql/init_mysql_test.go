package mysql

import (
	"testing"

	"medichat_server/internal/config"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialectorSelectsDriver(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DatabaseName: "chat"}

	pg := base
	pg.Driver = "postgres"
	d, err := Dialector(&pg)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	my := base
	my.Driver = "mysql"
	d, err = Dialector(&my)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	bad := base
	bad.Driver = "oracle"
	_, err = Dialector(&bad)
	assert.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"message", "doctors", "nurses"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
