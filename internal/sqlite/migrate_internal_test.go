package sqlite

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/repcoach/internal/testhelpers"
)

const testTable = "CREATE TABLE plan (id INTEGER PRIMARY KEY, name TEXT)"

func newTestConnection(t *testing.T) *Database {
	t.Helper()
	db, err := connect(":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return db
}

func TestDatabase_migrateTo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		schemas  []string
		query    string
		queryErr bool
	}{
		{"empty schema", []string{""}, "SELECT * FROM sqlite_schema", false},
		{"create table", []string{testTable}, "INSERT INTO plan (name) VALUES ('a')", false},
		{"drop table", []string{testTable, ""}, "INSERT INTO plan (name) VALUES ('a')", true},
		{
			"add column",
			[]string{"CREATE TABLE plan (id INTEGER PRIMARY KEY)", testTable},
			"INSERT INTO plan (name) VALUES ('a')",
			false,
		},
		{
			"remove column",
			[]string{testTable, "CREATE TABLE plan (id INTEGER PRIMARY KEY)"},
			"INSERT INTO plan (name) VALUES ('a')",
			true,
		},
		{"create index", []string{testTable + "; CREATE INDEX plan_name ON plan (name)"}, "DROP INDEX plan_name", false},
		{
			"drop index",
			[]string{testTable + "; CREATE INDEX plan_name ON plan (name)", testTable},
			"DROP INDEX plan_name",
			true,
		},
		{
			"change index",
			[]string{
				testTable + "; CREATE INDEX plan_name ON plan (name)",
				testTable + "; CREATE INDEX plan_name ON plan (id, name)",
			},
			"DROP INDEX plan_name",
			false,
		},
		{
			"create trigger",
			[]string{testTable + "; CREATE TRIGGER plan_fail AFTER INSERT ON plan BEGIN SELECT RAISE(FAIL, 'no'); END;"},
			"INSERT INTO plan (name) VALUES ('a')",
			true,
		},
		{
			"drop trigger",
			[]string{
				testTable + "; CREATE TRIGGER plan_fail AFTER INSERT ON plan BEGIN SELECT RAISE(FAIL, 'no'); END;",
				testTable,
			},
			"INSERT INTO plan (name) VALUES ('a')",
			false,
		},
		{
			"change trigger",
			[]string{
				testTable + "; CREATE TRIGGER plan_fail AFTER INSERT ON plan BEGIN SELECT RAISE(FAIL, 'no'); END;",
				testTable + "; CREATE TRIGGER plan_fail AFTER INSERT ON plan BEGIN SELECT 1; END;",
			},
			"INSERT INTO plan (name) VALUES ('a')",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			db := newTestConnection(t)
			for _, schema := range tt.schemas {
				if err := db.migrateTo(ctx, schema); err != nil {
					t.Fatalf("migrateTo(%q): %v", schema, err)
				}
			}
			_, err := db.ReadWrite.ExecContext(ctx, tt.query)
			if tt.queryErr != (err != nil) {
				t.Errorf("exec %q: error = %v, want error %t", tt.query, err, tt.queryErr)
			}
		})
	}
}

func TestDatabase_migrateTo_keepsRows(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db := newTestConnection(t)

	if err := db.migrateTo(ctx, testTable); err != nil {
		t.Fatalf("initial migration: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO plan (id, name) VALUES (1, 'strength'), (2, 'volume')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.migrateTo(ctx,
		"CREATE TABLE plan (id INTEGER PRIMARY KEY, name TEXT, weeks INTEGER NOT NULL DEFAULT 4)"); err != nil {
		t.Fatalf("add column: %v", err)
	}

	rows, err := db.ReadOnly.QueryContext(ctx, "SELECT name, weeks FROM plan ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var (
			name  string
			weeks int
		)
		if err = rows.Scan(&name, &weeks); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if weeks != 4 {
			t.Errorf("weeks = %d, want 4", weeks)
		}
		got = append(got, name)
	}
	if err = rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if diff := cmp.Diff([]string{"strength", "volume"}, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var movements, muscles int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM movements").Scan(&movements); err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM muscle_groups").Scan(&muscles); err != nil {
		t.Fatalf("count muscle groups: %v", err)
	}
	if movements == 0 || muscles == 0 {
		t.Errorf("fixtures not applied: %d movements, %d muscle groups", movements, muscles)
	}

	// Migrating twice and reapplying fixtures must be a no-op.
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		t.Fatalf("second migration: %v", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		t.Fatalf("reapply fixtures: %v", err)
	}
	var again int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM movements").Scan(&again); err != nil {
		t.Fatalf("recount movements: %v", err)
	}
	if again != movements {
		t.Errorf("movements after reapply = %d, want %d", again, movements)
	}
}
