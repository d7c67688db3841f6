package yamlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goLink "github.com/MrEthical07/goLink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ goLink.IdentityStore = (*Store)(nil)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	require.Error(t, err)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "users.yml"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSetIsInvisibleOnDiskUntilSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.yml")

	s, err := Open(path)
	require.NoError(t, err)

	linkedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "123456789012345678", goLink.LinkedAccount{LocalAccount: "Alice", LinkedAt: linkedAt}))

	ok, err := s.Exists(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.False(t, ok, "staged record is not linked before Save")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file must not exist before Save")

	require.NoError(t, s.Save(ctx))
	ok, err = s.Exists(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.True(t, ok)

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok, err := reopened.Get(ctx, "123456789012345678")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", got.LocalAccount)
	assert.Equal(t, "123456789012345678", got.ExternalAccountID)
	assert.True(t, got.LinkedAt.Equal(linkedAt))
}

func TestOpenReadsPluginDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yml")
	doc := "\"123456789012345678\":\n  player: Steve\n  discord_id: \"123456789012345678\"\n\"98765432109876543\":\n  player: Alex\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	got, ok, err := s.Get(context.Background(), "98765432109876543")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alex", got.LocalAccount)
	assert.Equal(t, "98765432109876543", got.ExternalAccountID)
}

func TestOpenRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o600))

	_, err := Open(path)
	require.Error(t, err)
}

func TestSaveFailureDiscardsStage(t *testing.T) {
	ctx := context.Background()
	dataDir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dataDir, "users.yml")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dataDir, nil, 0o600))
	require.NoError(t, s.Set(ctx, "123456789012345678", goLink.LinkedAccount{LocalAccount: "Alice"}))
	require.Error(t, s.Save(ctx))

	ok, err := s.Exists(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, os.Remove(dataDir))
	require.NoError(t, s.Set(ctx, "98765432109876543", goLink.LinkedAccount{LocalAccount: "Bob"}))
	require.NoError(t, s.Save(ctx))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len(), "discarded record must not ride along with a later Save")
	_, found, err := reopened.Get(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveWithoutChangesDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCanceledContext(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "users.yml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Exists(ctx, "123456789012345678")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "123456789012345678", goLink.LinkedAccount{}), context.Canceled)
	assert.ErrorIs(t, s.Save(ctx), context.Canceled)
}
