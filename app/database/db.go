package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// Every connection waits on locks instead of failing fast, and write
// transactions take the RESERVED lock at BEGIN.
const connectionParams = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

type DB struct {
	*sql.DB
}

var (
	registerOnce sync.Once
	registerErr  error
)

// NewConnection opens (creating if needed) the SQLite database at path.
func NewConnection(path string) (*DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, connectionParams))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// registerFunctions installs casefold(text), a Unicode-aware lowercase used
// for channel name search. LIKE alone only folds ASCII.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("casefold", 1,
			func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case string:
					return foldCase(v), nil
				case []byte:
					return foldCase(string(v)), nil
				default:
					return v, nil
				}
			})
		if registerErr != nil {
			registerErr = fmt.Errorf("failed to register casefold function: %w", registerErr)
		}
	})
	return registerErr
}

func foldCase(s string) string {
	return cases.Fold().String(s)
}
