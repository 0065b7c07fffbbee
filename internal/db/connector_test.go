package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

func TestNewConnector_Standard(t *testing.T) {
	c, err := NewConnector(&imdbload.ConnectionConfig{Host: "localhost", Port: 5432})
	require.NoError(t, err)
	assert.IsType(t, &StandardConnector{}, c)
}

func TestNewConnector_AWSRequiresRegion(t *testing.T) {
	_, err := NewConnector(&imdbload.ConnectionConfig{
		Host: "db.rds.amazonaws.com", Port: 5432, Username: "loader",
		AuthMethod: imdbload.AuthMethodAWSIAM,
	})
	assert.ErrorIs(t, err, imdbload.ErrInvalidConfig)
}

func TestNewConnector_AWS(t *testing.T) {
	c, err := NewConnector(&imdbload.ConnectionConfig{
		Host: "db.rds.amazonaws.com", Port: 5432, Username: "loader", AWSRegion: "us-east-1",
		AuthMethod: imdbload.AuthMethodAWSIAM,
	})
	require.NoError(t, err)
	tc, ok := c.(*TokenBasedConnector)
	require.True(t, ok)
	assert.Contains(t, tc.tokenProvider.String(), "region=us-east-1")
}

func TestNewConnector_GoogleRequiresInstance(t *testing.T) {
	_, err := NewConnector(&imdbload.ConnectionConfig{Username: "u", AuthMethod: imdbload.AuthMethodGoogleIAM})
	assert.ErrorIs(t, err, imdbload.ErrInvalidConfig)

	c, err := NewConnector(&imdbload.ConnectionConfig{Username: "u", GoogleInstance: "p:r:i", AuthMethod: imdbload.AuthMethodGoogleIAM})
	require.NoError(t, err)
	assert.IsType(t, &GoogleCloudSQLConnector{}, c)
}

func TestNewConnector_Unsupported(t *testing.T) {
	_, err := NewConnector(&imdbload.ConnectionConfig{AuthMethod: imdbload.AuthMethod(42)})
	assert.ErrorIs(t, err, imdbload.ErrUnsupportedAuthMethod)
}

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"dial tcp: connection refused", "connection refused to db:5432"},
		{"FATAL: password authentication failed for user", `password authentication failed for database "imdb"`},
		{`FATAL: database "imdb" does not exist`, "imdbload schema init --create-database"},
		{"i/o timeout", "connection timed out"},
		{"something odd", "failed to connect to database"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			raw := errors.New(tt.raw)
			err := wrapConnectionError(raw, "db", 5432, "imdb")
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, err, raw)
		})
	}
}
