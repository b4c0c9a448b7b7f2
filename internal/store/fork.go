package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/pkg/db"
	"github.com/eigerco/bilberry/pkg/db/pebble"
)

// Forks persists fork snapshots keyed by fork ID, so a restarting node can
// resume with the fork set it last observed.
type Forks struct {
	db db.KVStore
}

func NewForks(kv db.KVStore) *Forks {
	return &Forks{db: kv}
}

func (s *Forks) PutFork(f *chain.Fork) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := s.db.Put(uint64Key(prefixFork, uint64(f.ID)), data); err != nil {
		return fmt.Errorf("put fork %d: %w", f.ID, err)
	}
	return nil
}

func (s *Forks) Fork(id chain.ForkID) (*chain.Fork, error) {
	data, err := s.db.Get(uint64Key(prefixFork, uint64(id)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrForkNotFound, id)
		}
		return nil, fmt.Errorf("get fork %d: %w", id, err)
	}
	return chain.ForkFromBytes(data)
}

func (s *Forks) DeleteFork(id chain.ForkID) error {
	if err := s.db.Delete(uint64Key(prefixFork, uint64(id))); err != nil {
		return fmt.Errorf("delete fork %d: %w", id, err)
	}
	return nil
}

// Forks returns all persisted forks in ID order.
func (s *Forks) Forks() ([]*chain.Fork, error) {
	iter, err := s.db.NewIterator([]byte{prefixFork}, []byte{prefixFork + 1})
	if err != nil {
		return nil, fmt.Errorf("create fork iterator: %w", err)
	}
	defer iter.Close()

	var out []*chain.Fork
	for iter.Next() {
		data, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read fork value: %w", err)
		}
		f, err := chain.ForkFromBytes(data)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
