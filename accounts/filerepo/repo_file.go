package filerepo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-partner-client/accounts"
	clienterrors "github.com/jrsteele09/go-partner-client/internal/errors"
)

var _ accounts.Repo = (*FileRepo)(nil)

// FileRepo is a file-backed implementation of accounts.Repo. The store is
// a JSON array of {number, refresh_token} records; the file is the source
// of truth at startup and the rotation target after every token renewal.
// All mutations are serialized and flushed to disk via a temp file and an
// atomic rename before returning, so the file on disk is always either
// the pre-mutation or the post-mutation set, never a partial write.
type FileRepo struct {
	mu       sync.Mutex
	path     string
	accounts []accounts.Account
}

// NewFileRepo loads the store at path, creating an empty one (and any
// missing parent directories) if it does not exist.
func NewFileRepo(path string) (*FileRepo, error) {
	r := &FileRepo{path: path}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) Upsert(account accounts.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := false
	for i := range r.accounts {
		if r.accounts[i].Number == account.Number {
			r.accounts[i].RefreshToken = account.RefreshToken
			replaced = true
			break
		}
	}
	if !replaced {
		r.accounts = append(r.accounts, account)
	}

	if err := r.flush(); err != nil {
		if replaced {
			return err
		}
		// Roll back the in-memory append so memory and disk agree.
		r.accounts = r.accounts[:len(r.accounts)-1]
		return err
	}
	return nil
}

func (r *FileRepo) Remove(number int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.accounts[:0]
	removed := false
	for _, account := range r.accounts {
		if account.Number == number {
			removed = true
			continue
		}
		kept = append(kept, account)
	}
	if !removed {
		return nil
	}
	r.accounts = kept

	return r.flush()
}

func (r *FileRepo) Get(number int64) (*accounts.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Number == number {
			copied := account
			return &copied, nil
		}
	}
	return nil, clienterrors.ErrCredentialNotFound
}

func (r *FileRepo) List() ([]accounts.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listed := make([]accounts.Account, len(r.accounts))
	copy(listed, r.accounts)
	return listed, nil
}

func (r *FileRepo) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.accounts = nil
		return r.flush()
	}
	if err != nil {
		return errors.Wrapf(err, "[FileRepo.load] reading %s", r.path)
	}

	var loaded []accounts.Account
	if err := json.Unmarshal(data, &loaded); err != nil {
		return errors.Wrapf(err, "[FileRepo.load] parsing %s", r.path)
	}
	r.accounts = loaded
	return nil
}

// flush writes the full current set to a temp file in the store's
// directory and renames it over the store. Callers must hold r.mu.
func (r *FileRepo) flush() error {
	records := r.accounts
	if records == nil {
		records = []accounts.Account{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.flush] marshalling accounts")
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "[FileRepo.flush] creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.flush] creating temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileRepo.flush] writing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileRepo.flush] closing temp file")
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "[FileRepo.flush] replacing %s", r.path)
	}
	return nil
}
