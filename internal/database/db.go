package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open connects to MySQL using a go-sql-driver DSN and verifies the
// connection.  The DSN is normalised so DATETIME columns scan into time.Time
// in UTC.
func Open(dsn string) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// IsDuplicateKey reports whether err is a MySQL unique-constraint violation
// (error 1062).  The second result is the violated key name without its
// table qualifier, e.g. "uq_users_email", or "" when the message has none.
func IsDuplicateKey(err error) (bool, string) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return false, ""
	}
	return true, duplicateKeyName(me.Message)
}

// duplicateKeyName extracts the key from "Duplicate entry 'v' for key 'k'".
// The entry value may itself contain the marker, so the last one wins.
func duplicateKeyName(msg string) string {
	const marker = "for key '"
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(msg[i+len(marker):], "'")
	if dot := strings.LastIndexByte(key, '.'); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}

// IsPermanent reports whether err is a MySQL error that retrying the same
// statement can never fix: a missing foreign-key parent (1452), data too
// long (1406), a NULL in a NOT NULL column (1048) or an invalid value (1366).
func IsPermanent(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case 1048, 1366, 1406, 1452:
		return true
	}
	return false
}
