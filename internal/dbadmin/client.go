package dbadmin

import (
	"context"
	"errors"
)

var (
	ErrRequestFailed    = errors.New("managed database request failed")
	ErrInstanceNotFound = errors.New("database instance not found")
	ErrTimeout          = errors.New("managed database request timeout")
)

// Client is the contract against the managed-database provider.
type Client interface {
	// DescribeInstance returns the current instance class of a database.
	DescribeInstance(ctx context.Context, instanceID string) (string, error)

	// ModifyInstance changes the database's instance class.
	ModifyInstance(ctx context.Context, instanceID, newClass string) error

	// Close releases any resources held by the client.
	Close() error
}
