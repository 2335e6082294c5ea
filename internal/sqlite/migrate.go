package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// migrateTo makes the live schema match schemaDefinition declaratively.
//
// The target schema is created in an attached in-memory database and diffed against the live one through
// sqlite_schema. Removed tables are dropped, new tables created and changed tables rebuilt with the 12-step
// procedure from https://www.sqlite.org/lang_altertable.html#otheralter. Indexes and triggers are synchronised
// afterwards. The approach follows https://david.rothlis.net/declarative-schema-migration-for-sqlite/.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", fkErr))
		}
	}()

	err = db.InTx(ctx, func(tx *sql.Tx) error {
		if err = db.migrateTables(ctx, tx); err != nil {
			return fmt.Errorf("migrate tables: %w", err)
		}
		for _, typ := range []schemaType{schemaTypeIndex, schemaTypeTrigger} {
			if err = db.migrateSchemaObjects(ctx, tx, typ); err != nil {
				return fmt.Errorf("migrate %ss: %w", typ, err)
			}
		}
		violations, checkErr := db.queryStrings(ctx, tx, `SELECT "table" FROM pragma_foreign_key_check`)
		if checkErr != nil {
			return fmt.Errorf("foreign key check: %w", checkErr)
		}
		if len(violations) > 0 {
			return fmt.Errorf("foreign key violations in tables %s", strings.Join(violations, ", "))
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget creates the target schema in a throwaway database attached as schemaTarget.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema target: %w", err)
	}
	// The shared-cache database lives as long as one connection to it is open, ATTACH below keeps it alive.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target", slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target", slog.Any("error", detachErr))
		}
	}, nil
}

type schemaType string

const (
	schemaTypeTable   schemaType = "table"
	schemaTypeIndex   schemaType = "index"
	schemaTypeTrigger schemaType = "trigger"
)

// internalObjects filters out objects managed by SQLite itself.
const internalObjects = `name NOT LIKE 'sqlite_%'`

type schemaDiff struct {
	removed []string
	added   []string
	changed []changedObject
}

type changedObject struct {
	name    string
	liveSQL string
	newSQL  string
}

// diffSchema compares objects of typ between the live database and schemaTarget.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, typ schemaType) (schemaDiff, error) {
	var (
		diff schemaDiff
		err  error
	)
	if diff.removed, err = db.queryStrings(ctx, tx, `
		SELECT live.name FROM main.sqlite_schema AS live
		WHERE live.type = :type AND live.`+internalObjects+`
		  AND NOT EXISTS (SELECT 1 FROM schemaTarget.sqlite_schema AS target
		                  WHERE target.name = live.name AND target.type = live.type)`,
		sql.Named("type", string(typ))); err != nil {
		return diff, fmt.Errorf("query removed: %w", err)
	}
	if diff.added, err = db.queryStrings(ctx, tx, `
		SELECT target.sql FROM schemaTarget.sqlite_schema AS target
		WHERE target.type = :type AND target.`+internalObjects+` AND target.sql IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM main.sqlite_schema AS live
		                  WHERE live.name = target.name AND live.type = target.type)`,
		sql.Named("type", string(typ))); err != nil {
		return diff, fmt.Errorf("query added: %w", err)
	}

	// RENAME TABLE quotes the table name in the stored SQL, so quotes are ignored in the comparison.
	rows, err := tx.QueryContext(ctx, `
		SELECT live.name, live.sql, target.sql
		FROM main.sqlite_schema AS live
		JOIN schemaTarget.sqlite_schema AS target ON target.name = live.name AND target.type = live.type
		WHERE live.type = :type AND live.`+internalObjects+`
		  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`,
		sql.Named("type", string(typ)))
	if err != nil {
		return diff, fmt.Errorf("query changed: %w", err)
	}
	defer db.closeRows(ctx, rows)
	for rows.Next() {
		var c changedObject
		if err = rows.Scan(&c.name, &c.liveSQL, &c.newSQL); err != nil {
			return diff, fmt.Errorf("scan changed: %w", err)
		}
		diff.changed = append(diff.changed, c)
	}
	if err = rows.Err(); err != nil {
		return diff, fmt.Errorf("iterate changed: %w", err)
	}
	return diff, nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	diff, err := db.diffSchema(ctx, tx, schemaTypeTable)
	if err != nil {
		return err
	}

	for _, name := range diff.removed {
		if err = db.exec(ctx, tx, "dropping table", fmt.Sprintf("DROP TABLE %q", name)); err != nil {
			return err
		}
	}
	for _, createSQL := range diff.added {
		if err = db.exec(ctx, tx, "creating table", createSQL); err != nil {
			return err
		}
	}
	for _, table := range diff.changed {
		if err = db.rebuildTable(ctx, tx, table); err != nil {
			return fmt.Errorf("rebuild table %s: %w", table.name, err)
		}
	}
	return nil
}

// rebuildTable creates the new table definition under a temporary name, copies the shared columns and swaps it in.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table changedObject) error {
	tempName := table.name + "_migration_temp"
	if err := db.exec(ctx, tx, "creating rebuilt table",
		strings.Replace(table.newSQL, table.name, tempName, 1)); err != nil {
		return err
	}

	// Quoted because column names may be keywords.
	common, err := db.queryStrings(ctx, tx, `
		SELECT '"' || target.name || '"'
		FROM pragma_table_info(:table) AS live
		JOIN pragma_table_info(:table, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	columns := strings.Join(common, ", ")

	statements := []struct{ msg, query string }{
		{"copying rows", fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, columns, columns, table.name)},
		{"dropping old table", fmt.Sprintf("DROP TABLE %s", table.name)},
		{"renaming rebuilt table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name)},
	}
	for _, stmt := range statements {
		if err = db.exec(ctx, tx, stmt.msg, stmt.query); err != nil {
			return err
		}
	}
	return nil
}

// migrateSchemaObjects synchronises indexes or triggers. Changed objects are dropped and recreated.
func (db *Database) migrateSchemaObjects(ctx context.Context, tx *sql.Tx, typ schemaType) error {
	diff, err := db.diffSchema(ctx, tx, typ)
	if err != nil {
		return err
	}
	keyword := strings.ToUpper(string(typ))

	for _, name := range diff.removed {
		if err = db.exec(ctx, tx, "dropping "+string(typ), fmt.Sprintf("DROP %s IF EXISTS %q", keyword, name)); err != nil {
			return err
		}
	}
	for _, changed := range diff.changed {
		if err = db.exec(ctx, tx, "dropping changed "+string(typ),
			fmt.Sprintf("DROP %s IF EXISTS %q", keyword, changed.name)); err != nil {
			return err
		}
		diff.added = append(diff.added, changed.newSQL)
	}
	for _, createSQL := range diff.added {
		if err = db.exec(ctx, tx, "creating "+string(typ), createSQL); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) exec(ctx context.Context, tx *sql.Tx, msg string, query string) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

// queryStrings returns the single string column of every row of query.
func (db *Database) queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer db.closeRows(ctx, rows)

	var results []string
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

func (db *Database) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", slog.Any("error", err))
	}
}
