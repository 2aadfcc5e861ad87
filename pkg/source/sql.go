package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQL drivers registered by this package.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQL opens and pings a database/sql handle.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// SQLPlayers reads players from a table with the columns
// id, name, instrument, creation_date.
type SQLPlayers struct {
	DB    *sql.DB
	Table string
}

func (s SQLPlayers) Players(ctx context.Context) (PlayerCursor, error) {
	table := s.Table
	if table == "" {
		table = "players"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, instrument, creation_date FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	return &sqlCursor{rows: rows}, nil
}

type sqlCursor struct {
	rows    *sql.Rows
	current Player
	err     error
}

func (c *sqlCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var id, name, instrument, created sql.NullString
	if err := c.rows.Scan(&id, &name, &instrument, &created); err != nil {
		c.err = fmt.Errorf("scan player: %w", err)
		return false
	}
	c.current = Player{
		ID:           id.String,
		Name:         name.String,
		Instrument:   instrument.String,
		CreationDate: created.String,
	}
	return true
}

func (c *sqlCursor) Player() Player { return c.current }

func (c *sqlCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *sqlCursor) Close() error { return c.rows.Close() }
