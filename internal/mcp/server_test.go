package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/logger"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/tools"
)

type mockDocuments struct {
	content string
	err     error
	query   string
}

func (m *mockDocuments) QueryDocuments(_ context.Context, query string) (string, error) {
	m.query = query
	return m.content, m.err
}

func TestNewServer(t *testing.T) {
	t.Run("nil documents returns error", func(t *testing.T) {
		server, err := NewServer(nil, nil, logger.Discard())
		assert.ErrorIs(t, err, ErrMissingDocuments)
		assert.Nil(t, server)
	})

	t.Run("valid dependencies create server", func(t *testing.T) {
		server, err := NewServer(&mockDocuments{}, tools.NewExecutor(nil), logger.Discard())
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns retrieved content", func(t *testing.T) {
		docs := &mockDocuments{content: "chunk a\n\nchunk b"}
		server, err := NewServer(docs, nil, logger.Discard())
		require.NoError(t, err)

		_, out, err := server.handleQuery(ctx, nil, QueryInput{Query: "what is in the manual"})
		require.NoError(t, err)
		assert.Equal(t, "chunk a\n\nchunk b", out.Content)
		assert.Equal(t, "what is in the manual", docs.query)
	})

	t.Run("empty store yields sentinel text", func(t *testing.T) {
		server, err := NewServer(&mockDocuments{content: rag.NoRelevantContent}, nil, logger.Discard())
		require.NoError(t, err)

		_, out, err := server.handleQuery(ctx, nil, QueryInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, rag.NoRelevantContent, out.Content)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server, err := NewServer(&mockDocuments{err: errors.New("embedding timeout")}, nil, logger.Discard())
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Query: "x"})
		assert.ErrorContains(t, err, "embedding timeout")
	})
}

func TestServer_handleTime(t *testing.T) {
	server, err := NewServer(&mockDocuments{}, tools.NewExecutor(nil), logger.Discard())
	require.NoError(t, err)

	_, out, err := server.handleTime(context.Background(), nil, TimeInput{Timezone: "UTC"})
	require.NoError(t, err)
	assert.Regexp(t, `^\d{1,2}/\d{1,2}/\d{4}, \d{1,2}:\d{2}:\d{2} (AM|PM)$`, out.Time)

	_, _, err = server.handleTime(context.Background(), nil, TimeInput{Timezone: "Not/AZone"})
	assert.ErrorIs(t, err, errs.ErrToolExecution)
}
