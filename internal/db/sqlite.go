// Package db provides database connectivity helpers and migration support.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// SQLite DSN hardening parameters applied to every connection.
const (
	busyTimeoutMS = "5000"
	journalMode   = "WAL"
	synchronous   = "NORMAL"
)

// OpenWriter opens a single-connection pool for serialized writes. The
// connection takes the write lock eagerly (_txlock=immediate) so concurrent
// writers queue in SQLite's busy handler instead of failing mid-transaction.
func OpenWriter(path string) (*sql.DB, error) {
	pool, err := open(dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("open sqlite writer: %w", err)
	}
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)
	return pool, nil
}

// OpenReader opens a pool sized for concurrent reads. maxOpen <= 0 defaults
// to 4 connections.
func OpenReader(path string, maxOpen int) (*sql.DB, error) {
	if maxOpen <= 0 {
		maxOpen = 4
	}
	pool, err := open(dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	return pool, nil
}

// OpenPair opens the write and read pools for the same SQLite file. This is
// the recommended arrangement for serving HTTP traffic from SQLite in Go.
func OpenPair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenWriter(path)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = OpenReader(path, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func open(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}

func dsn(path string, write bool) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMS)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	if write {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
