package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/ledger?sslmode=disable", "pgx5://u:p@localhost:5432/ledger?sslmode=disable"},
		{"postgresql://u:p@db/ledger", "pgx5://u:p@db/ledger"},
		{"pgx5://u:p@db/ledger", "pgx5://u:p@db/ledger"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, migrationURL(tt.in), "migrationURL(%q)", tt.in)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}
