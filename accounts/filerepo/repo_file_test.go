package filerepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-partner-client/accounts"
	"github.com/jrsteele09/go-partner-client/accounts/filerepo"
	"github.com/jrsteele09/go-partner-client/internal/errors"
)

func newTestRepo(t *testing.T) (*filerepo.FileRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refresh-tokens.json")
	repo, err := filerepo.NewFileRepo(path)
	require.NoError(t, err)
	return repo, path
}

func TestNewFileRepoCreatesEmptyStore(t *testing.T) {
	repo, path := newTestRepo(t)

	listed, err := repo.List()
	require.NoError(t, err)
	require.Empty(t, listed)

	// The empty store is written out immediately so a restart sees a
	// well-formed file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(data))
}

func TestUpsertReplacesInPlace(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Upsert(accounts.Account{Number: 6281234567890, RefreshToken: "t1"}))
	require.NoError(t, repo.Upsert(accounts.Account{Number: 6289876543210, RefreshToken: "other"}))
	require.NoError(t, repo.Upsert(accounts.Account{Number: 6281234567890, RefreshToken: "t2"}))

	listed, err := repo.List()
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Position preserved: the replaced account stays first.
	require.Equal(t, int64(6281234567890), listed[0].Number)
	require.Equal(t, "t2", listed[0].RefreshToken)
	require.Equal(t, int64(6289876543210), listed[1].Number)
}

func TestRemoveIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Upsert(accounts.Account{Number: 628111, RefreshToken: "t1"}))
	require.NoError(t, repo.Remove(628111))
	require.NoError(t, repo.Remove(628111))

	listed, err := repo.List()
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestGetUnknownNumber(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(628999)
	require.ErrorIs(t, err, errors.ErrCredentialNotFound)
}

func TestMutationsSurviveReload(t *testing.T) {
	repo, path := newTestRepo(t)

	require.NoError(t, repo.Upsert(accounts.Account{Number: 628111, RefreshToken: "r1"}))
	require.NoError(t, repo.Upsert(accounts.Account{Number: 628222, RefreshToken: "r2"}))
	require.NoError(t, repo.Remove(628111))

	reloaded, err := filerepo.NewFileRepo(path)
	require.NoError(t, err)

	listed, err := reloaded.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, int64(628222), listed[0].Number)
	require.Equal(t, "r2", listed[0].RefreshToken)
}

func TestLoadExistingFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh-tokens.json")
	content := `[{"number": 6281234567890, "refresh_token": "R0"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	repo, err := filerepo.NewFileRepo(path)
	require.NoError(t, err)

	account, err := repo.Get(6281234567890)
	require.NoError(t, err)
	require.Equal(t, "R0", account.RefreshToken)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh-tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := filerepo.NewFileRepo(path)
	require.Error(t, err)
}

func TestListReturnsCopy(t *testing.T) {
	repo, _ := newTestRepo(t)
	require.NoError(t, repo.Upsert(accounts.Account{Number: 628111, RefreshToken: "r1"}))

	listed, err := repo.List()
	require.NoError(t, err)
	listed[0].RefreshToken = "mutated"

	again, err := repo.List()
	require.NoError(t, err)
	require.Equal(t, "r1", again[0].RefreshToken)
}
