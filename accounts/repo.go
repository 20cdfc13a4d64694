package accounts

// Repo manages the durable set of account credentials. At most one record
// exists per subscriber number: Upsert replaces an existing record in
// place, preserving its position in the stored sequence. Remove of an
// unknown number is a no-op. Implementations must persist every mutation
// before returning, atomically enough that a crash never leaves a
// partially written store.
type Repo interface {
	Upsert(account Account) error
	Remove(number int64) error
	Get(number int64) (*Account, error)
	List() ([]Account, error)
}
