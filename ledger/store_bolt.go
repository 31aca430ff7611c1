package ledger

import (
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var (
	// balancesBucket maps a 20-byte identity to a 32-byte big-endian balance.
	balancesBucket = []byte("balances")
	// allowancesBucket maps a 40-byte owner||spender key to a 32-byte big-endian allowance.
	allowancesBucket = []byte("allowances")
	// supplyBucket holds the total supply under totalSupplyKey.
	supplyBucket   = []byte("supply")
	totalSupplyKey = []byte("total")

	allBuckets = [][]byte{balancesBucket, allowancesBucket, supplyBucket}
)

// BoltStore is a Store backed by a bbolt database file. Each Update maps to one bbolt read-write transaction, so a
// failed ledger operation never leaves partial writes behind.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at the provided path and prepares its buckets.
// Returns the store, or an error if one occurs.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open ledger database at %s", path)
	}

	s := &BoltStore{db: db}
	err = db.Update(func(tx *bbolt.Tx) error {
		return createBuckets(tx)
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}
	return s, nil
}

// View runs fn in a bbolt read-only transaction.
func (s *BoltStore) View(fn func(StateReader) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Update runs fn in a bbolt read-write transaction.
func (s *BoltStore) Update(fn func(StateWriter) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Reset drops and recreates every bucket.
func (s *BoltStore) Reset() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return createBuckets(tx)
	})
	return errors.WithStack(err)
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return errors.WithStack(s.db.Close())
}

// Path returns the path of the underlying database file.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

func createBuckets(tx *bbolt.Tx) error {
	for _, name := range allBuckets {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

// boltTx adapts a bbolt transaction to the StateWriter interface. Writes fail on read-only transactions.
type boltTx struct {
	tx *bbolt.Tx
}

func (b *boltTx) get(bucket []byte, key []byte) *uint256.Int {
	data := b.tx.Bucket(bucket).Get(key)
	if data == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes32(data)
}

func (b *boltTx) put(bucket []byte, key []byte, amount *uint256.Int) error {
	value := amount.Bytes32()
	return errors.WithStack(b.tx.Bucket(bucket).Put(key, value[:]))
}

func (b *boltTx) Balance(id common.Address) (*uint256.Int, error) {
	return b.get(balancesBucket, id.Bytes()), nil
}

func (b *boltTx) Allowance(owner common.Address, spender common.Address) (*uint256.Int, error) {
	return b.get(allowancesBucket, allowanceKeyBytes(owner, spender)), nil
}

func (b *boltTx) TotalSupply() (*uint256.Int, error) {
	return b.get(supplyBucket, totalSupplyKey), nil
}

func (b *boltTx) SetBalance(id common.Address, amount *uint256.Int) error {
	return b.put(balancesBucket, id.Bytes(), amount)
}

func (b *boltTx) SetAllowance(owner common.Address, spender common.Address, amount *uint256.Int) error {
	return b.put(allowancesBucket, allowanceKeyBytes(owner, spender), amount)
}

func (b *boltTx) SetTotalSupply(amount *uint256.Int) error {
	return b.put(supplyBucket, totalSupplyKey, amount)
}

// allowanceKeyBytes returns the owner||spender database key for an allowance.
func allowanceKeyBytes(owner common.Address, spender common.Address) []byte {
	key := make([]byte, 0, 2*common.AddressLength)
	key = append(key, owner.Bytes()...)
	return append(key, spender.Bytes()...)
}
