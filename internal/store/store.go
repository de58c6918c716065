// Package store is the local key-value persistence used for auto-saved
// documents and session state.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("store: closed")

	// ErrUnknownDriver is returned by Open for an unsupported driver.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

type Store interface {
	// Get returns the value for key; ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

type Config struct {
	Driver Driver
	// DBPath is the sqlite database file.
	DBPath string
	// Addr, Password and Prefix configure the redis driver.
	Addr     string
	Password string
	Prefix   string
}

// Open returns the store selected by cfg.Driver. An empty driver means sqlite.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return NewSQLite(cfg.DBPath)
	case DriverRedis:
		return NewRedis(cfg.Addr, cfg.Password, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// DocumentKey is the key under which the content of a resource is saved.
func DocumentKey(id string) string {
	return "document:" + id
}

// SessionKey holds the persisted editor session.
const SessionKey = "session"
