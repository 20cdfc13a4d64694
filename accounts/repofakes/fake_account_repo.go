package repofakes

import (
	"sync"

	"github.com/jrsteele09/go-partner-client/accounts"
	"github.com/jrsteele09/go-partner-client/internal/errors"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Repo for tests. It mirrors the
// file-backed repo's ordering semantics: upsert replaces in place,
// appends otherwise.
type FakeAccountRepo struct {
	lock     sync.RWMutex
	accounts []accounts.Account

	// UpsertErr, when set, is returned by every Upsert call. Used to
	// simulate credential store I/O failures.
	UpsertErr error
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{}
}

func (r *FakeAccountRepo) Upsert(account accounts.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.UpsertErr != nil {
		return r.UpsertErr
	}

	for i := range r.accounts {
		if r.accounts[i].Number == account.Number {
			r.accounts[i].RefreshToken = account.RefreshToken
			return nil
		}
	}
	r.accounts = append(r.accounts, account)
	return nil
}

func (r *FakeAccountRepo) Remove(number int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	kept := r.accounts[:0]
	for _, account := range r.accounts {
		if account.Number != number {
			kept = append(kept, account)
		}
	}
	r.accounts = kept
	return nil
}

func (r *FakeAccountRepo) Get(number int64) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, account := range r.accounts {
		if account.Number == number {
			copied := account
			return &copied, nil
		}
	}
	return nil, errors.ErrCredentialNotFound
}

func (r *FakeAccountRepo) List() ([]accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	listed := make([]accounts.Account, len(r.accounts))
	copy(listed, r.accounts)
	return listed, nil
}
