package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ingestion service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{}, nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngestionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Ingestion: &mockIngestionService{}}, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.log)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingIngestionService)
	assert.NoError(t, (&Ports{Ingestion: &mockIngestionService{}}).Validate())
}
