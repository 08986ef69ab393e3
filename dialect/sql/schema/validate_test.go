package schema

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
)

func TestValidateTables(t *testing.T) {
	tests := []struct {
		name    string
		tables  func() []*Table
		wantErr string
	}{
		{
			name: "valid",
			tables: func() []*Table {
				return []*Table{usersTable()}
			},
		},
		{
			name: "duplicate table",
			tables: func() []*Table {
				return []*Table{usersTable(), usersTable()}
			},
			wantErr: `table "users" declared twice`,
		},
		{
			name: "duplicate column",
			tables: func() []*Table {
				tbl := NewTable("tags").
					AddPrimary(&Column{Name: "id", Type: TypeInt, Increment: true}).
					AddColumn(&Column{Name: "label", Type: TypeString}).
					AddColumn(&Column{Name: "label", Type: TypeString})
				return []*Table{tbl}
			},
			wantErr: `column "label" declared twice`,
		},
		{
			name: "duplicate index",
			tables: func() []*Table {
				tbl := usersTable()
				tbl.AddIndex("idx_users_name", false, []string{"name"})
				return []*Table{tbl}
			},
			wantErr: `index "idx_users_name" declared twice`,
		},
		{
			name: "index on unknown column",
			tables: func() []*Table {
				tbl := usersTable()
				tbl.AddIndex("idx_users_email", false, []string{"email"})
				return []*Table{tbl}
			},
			wantErr: `index "idx_users_email" references unknown column "email"`,
		},
		{
			name: "foreign key on unknown column",
			tables: func() []*Table {
				users := usersTable()
				id, ok := users.Column("id")
				require.True(t, ok)
				tbl := NewTable("posts").
					AddPrimary(&Column{Name: "id", Type: TypeInt, Increment: true})
				tbl.AddForeignKey(&ForeignKey{
					Symbol:     "posts_author",
					Columns:    []*Column{{Name: "author", Type: TypeInt}},
					RefTable:   users,
					RefColumns: []*Column{id},
				})
				return []*Table{tbl}
			},
			wantErr: `foreign key "posts_author" references unknown column "author"`,
		},
		{
			name: "foreign key without referenced table",
			tables: func() []*Table {
				tbl := NewTable("posts").
					AddPrimary(&Column{Name: "id", Type: TypeInt, Increment: true}).
					AddColumn(&Column{Name: "author", Type: TypeInt})
				author, ok := tbl.Column("author")
				require.True(t, ok)
				tbl.AddForeignKey(&ForeignKey{
					Symbol:  "posts_author",
					Columns: []*Column{author},
				})
				return []*Table{tbl}
			},
			wantErr: `foreign key "posts_author" has no referenced table`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTables(tt.tables())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// A broken definition is rejected before any statement is planned or
// executed.
func TestCreateRejectsInvalidDefinition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tbl := NewTable("tags").
		AddPrimary(&Column{Name: "id", Type: TypeInt, Increment: true}).
		AddColumn(&Column{Name: "label", Type: TypeString}).
		AddColumn(&Column{Name: "label", Type: TypeString})

	m, err := NewMigrate(sql.OpenDB(dialect.SQLite, db))
	require.NoError(t, err)
	err = m.Create(context.Background(), tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "label" declared twice`)
	require.NoError(t, mock.ExpectationsWereMet())
}
