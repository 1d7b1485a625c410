package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginRequired is returned by Initialize when no identity token is stored
	ErrLoginRequired = errors.New("login required")

	// ErrRefreshInProgress is returned when a knowledge refresh is already running
	ErrRefreshInProgress = errors.New("knowledge refresh already in progress")

	// ErrEntryNotFound is returned when a transcript entry ID is unknown
	ErrEntryNotFound = errors.New("transcript entry not found")

	// ErrMissingField is returned when a success response lacks the expected field
	ErrMissingField = errors.New("response field missing")
)

// StorageError represents errors accessing the local key-value store
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "delete"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RemoteError represents a failed call to the chat server
type RemoteError struct {
	Endpoint   string
	StatusCode int    // 0 when no response was received
	Detail     string // "detail" field of the error body, if any
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("remote error [%s] status %d: %s", e.Endpoint, e.StatusCode, e.Detail)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("remote error [%s] status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote error [%s] status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("remote error [%s]: %v", e.Endpoint, e.Err)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
