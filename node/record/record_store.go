package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sealvault-node/types"
	"sealvault-node/utils"

	"github.com/ipfs/go-datastore"
)

const (
	RECORD_INDEX_KEY = "record-index"
	RECORD_KEY       = "record-%s"
)

/**
 * record index for quick access to record datastore keys.
 */
type RecordIndex struct {
	All []string
}

func recordDatastoreKey(id string) datastore.Key {
	return datastore.NewKey(fmt.Sprintf(RECORD_KEY, id))
}

/**
 * RecordStore persists records in a datastore with optimistic versioning
 * and serializes mutation per record. The reference behavior let two
 * concurrent revocations interleave; here every read-modify-write on one
 * record goes through its mutex and a version check.
 *
 * Records live in the high-churn records datastore; the index lives in the
 * metadata datastore.
 */
type RecordStore struct {
	ds     datastore.Batching
	metaDs datastore.Batching

	lk    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRecordStore(recordsDs datastore.Batching, metadataDs datastore.Batching) *RecordStore {
	return &RecordStore{
		ds:     recordsDs,
		metaDs: metadataDs,
		locks:  make(map[string]*sync.Mutex),
	}
}

/**
 * LockRecord acquires the per-record mutation lock; the returned func
 * releases it.
 */
func (s *RecordStore) LockRecord(recordId string) func() {
	s.lk.Lock()
	lock, ok := s.locks[recordId]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[recordId] = lock
	}
	s.lk.Unlock()

	lock.Lock()
	return lock.Unlock
}

/**
 * Save persists a new record and adds it to the index.
 */
func (s *RecordStore) Save(ctx context.Context, rec *types.Record) error {
	key := recordDatastoreKey(rec.Id)

	exists, err := s.ds.Has(ctx, key)
	if err != nil {
		return types.Wrap(types.ErrSaveRecordFailed, err)
	}
	if exists {
		return types.Wrapf(types.ErrRecordConflict, "record %s already exists", rec.Id)
	}

	now := time.Now().Unix()
	if rec.Meta.CreatedAt == 0 {
		rec.Meta.CreatedAt = now
	}
	rec.Meta.UpdatedAt = now
	rec.Version = 1

	if err := s.put(ctx, key, rec); err != nil {
		return err
	}
	return s.updateIndex(ctx, rec.Id)
}

/**
 * Get loads a record by id.
 */
func (s *RecordStore) Get(ctx context.Context, recordId string) (*types.Record, error) {
	data, err := s.ds.Get(ctx, recordDatastoreKey(recordId))
	if err != nil {
		if err == datastore.ErrNotFound {
			return nil, types.Wrapf(types.ErrRecordNotFound, "record=%s", recordId)
		}
		return nil, types.Wrap(types.ErrSaveRecordFailed, err)
	}

	var rec types.Record
	if err := utils.Unmarshal(data, &rec); err != nil {
		return nil, types.Wrap(types.ErrSaveRecordFailed, err)
	}
	return &rec, nil
}

/**
 * Update persists a modified record. The stored version must equal the
 * version the caller loaded; otherwise the record changed concurrently
 * and the caller must re-read.
 */
func (s *RecordStore) Update(ctx context.Context, rec *types.Record) error {
	current, err := s.Get(ctx, rec.Id)
	if err != nil {
		return err
	}
	if current.Version != rec.Version {
		return types.Wrapf(types.ErrRecordConflict, "record %s version %d, expected %d", rec.Id, current.Version, rec.Version)
	}

	rec.Version++
	rec.Meta.UpdatedAt = time.Now().Unix()
	return s.put(ctx, recordDatastoreKey(rec.Id), rec)
}

/**
 * List returns all record ids from the index.
 */
func (s *RecordStore) List(ctx context.Context) ([]string, error) {
	index, err := s.getIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.All, nil
}

func (s *RecordStore) put(ctx context.Context, key datastore.Key, rec *types.Record) error {
	data, err := utils.Marshal(rec)
	if err != nil {
		return types.Wrap(types.ErrSaveRecordFailed, err)
	}
	if err := s.ds.Put(ctx, key, data); err != nil {
		return types.Wrap(types.ErrSaveRecordFailed, err)
	}
	return nil
}

func (s *RecordStore) getIndex(ctx context.Context) (*RecordIndex, error) {
	key := datastore.NewKey(RECORD_INDEX_KEY)

	exists, err := s.metaDs.Has(ctx, key)
	if err != nil {
		return nil, types.Wrap(types.ErrSaveRecordFailed, err)
	}

	var index RecordIndex
	if exists {
		data, err := s.metaDs.Get(ctx, key)
		if err != nil {
			return nil, types.Wrap(types.ErrSaveRecordFailed, err)
		}
		if err := utils.Unmarshal(data, &index); err != nil {
			return nil, types.Wrap(types.ErrSaveRecordFailed, err)
		}
	}
	return &index, nil
}

func (s *RecordStore) updateIndex(ctx context.Context, recordId string) error {
	index, err := s.getIndex(ctx)
	if err != nil {
		return err
	}

	for _, id := range index.All {
		if id == recordId {
			return nil
		}
	}
	index.All = append(index.All, recordId)

	data, err := utils.Marshal(index)
	if err != nil {
		return types.Wrap(types.ErrSaveRecordFailed, err)
	}
	if err := s.metaDs.Put(ctx, datastore.NewKey(RECORD_INDEX_KEY), data); err != nil {
		return types.Wrap(types.ErrSaveRecordFailed, err)
	}
	return nil
}
