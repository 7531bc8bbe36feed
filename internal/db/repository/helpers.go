// Package repository implements the domain repository interfaces over SQLite.
//
// Every repository holds the write/read pool pair: mutations go through the
// single-connection write pool, queries through the read pool.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"warden/internal/domain"
)

// mapDBError converts driver-level errors into domain errors so that callers
// never have to inspect SQLite error strings.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	return err
}

// marshalStrings encodes a string slice as the JSON text stored in list
// columns. A nil slice encodes as [].
func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(raw), &ss); err != nil {
		return nil, err
	}
	if ss == nil {
		ss = []string{}
	}
	return ss, nil
}

func marshalStringMap(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStringMap(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}
