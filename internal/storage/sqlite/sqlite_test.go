package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/and161185/nimbly/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite runs kv operations against an in-memory database
type StoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (suite *StoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	s, err := Open(suite.ctx, ":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.store = s
}

func (suite *StoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func (suite *StoreTestSuite) TestGetMissing() {
	_, err := suite.store.Get(suite.ctx, "auth_token")
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
}

func (suite *StoreTestSuite) TestSetOverwrites() {
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "theme", "light"))
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "theme", "dark"))

	v, err := suite.store.Get(suite.ctx, "theme")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "dark", v)
}

func (suite *StoreTestSuite) TestDeleteIsIdempotent() {
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "auth_token", "t"))
	require.NoError(suite.T(), suite.store.Delete(suite.ctx, "auth_token"))
	require.NoError(suite.T(), suite.store.Delete(suite.ctx, "auth_token"))

	_, err := suite.store.Get(suite.ctx, "auth_token")
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
}

func (suite *StoreTestSuite) TestScopedKeys() {
	a := storage.Scoped(suite.store, "sess:a:")
	require.NoError(suite.T(), a.Set(suite.ctx, "auth_token", "t"))

	v, err := suite.store.Get(suite.ctx, "sess:a:auth_token")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "t", v)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestOpen_FilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nimbly.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "auth_token", "persisted"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}
