package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// memRecordStore is an in-memory RecordStore keyed by collection and primary key.
type memRecordStore struct {
	mu        sync.Mutex
	rows      map[string]map[string]map[string]any
	commits   map[string][]string
	fetchErr  error
	commitErr error
	events    []string
	// afterCommit runs once a commit has been applied, with the store unlocked.
	afterCommit func(ctx context.Context)
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{
		rows:    make(map[string]map[string]map[string]any),
		commits: make(map[string][]string),
	}
}

func (s *memRecordStore) put(collection, id string, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[collection] == nil {
		s.rows[collection] = make(map[string]map[string]any)
	}
	s.rows[collection][id] = maps.Clone(values)
}

func (s *memRecordStore) get(collection, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.rows[collection][id])
}

func (s *memRecordStore) committed(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commits[collection])
}

func (s *memRecordStore) FetchBatch(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	afterID string,
	limit int,
) ([]*rotationDomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	rows := s.rows[mapping.Collection]
	ids := slices.Sorted(maps.Keys(rows))

	var records []*rotationDomain.Record
	for _, id := range ids {
		if id <= afterID {
			continue
		}
		if len(records) == limit {
			break
		}
		rec := rotationDomain.NewRecord(id, "entity-"+id)
		for _, col := range mapping.Columns() {
			if v, ok := rows[id][col]; ok {
				rec.Values[col] = v
			}
		}
		records = append(records, rec)
	}
	s.events = append(s.events, "fetch:"+mapping.Collection)
	return records, nil
}

func (s *memRecordStore) Commit(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	records []*rotationDomain.Record,
) error {
	if err := s.applyCommit(mapping, records); err != nil {
		return err
	}
	if s.afterCommit != nil {
		s.afterCommit(ctx)
	}
	return nil
}

func (s *memRecordStore) applyCommit(mapping *rotationDomain.FieldMapping, records []*rotationDomain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	for _, rec := range records {
		for _, field := range rec.Changed() {
			s.rows[mapping.Collection][rec.ID][field] = rec.Values[field]
		}
		s.commits[mapping.Collection] = append(s.commits[mapping.Collection], rec.ID)
	}
	s.events = append(s.events, "commit:"+mapping.Collection)
	return nil
}

// memProgressStore is an in-memory ProgressStore that shares an event log with a record store.
type memProgressStore struct {
	mu      sync.Mutex
	cursors map[string]string
	saves   []string
	saveErr error
	records *memRecordStore
}

func newMemProgressStore(records *memRecordStore) *memProgressStore {
	return &memProgressStore{cursors: make(map[string]string), records: records}
}

func (p *memProgressStore) Load(ctx context.Context, collection string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cursor, ok := p.cursors[collection]
	return cursor, ok, nil
}

// Save honours ctx the way the SQL and Badger stores do.
func (p *memProgressStore) Save(ctx context.Context, collection, lastID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.cursors[collection] = lastID
	p.saves = append(p.saves, lastID)
	if p.records != nil {
		p.records.mu.Lock()
		p.records.events = append(p.records.events, "save:"+collection)
		p.records.mu.Unlock()
	}
	return nil
}

func (p *memProgressStore) Clear(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cursors, collection)
	return nil
}

func (p *memProgressStore) cursor(collection string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cursors[collection]
	return c, ok
}

// engines builds a string and binary engine pair over the same key ring.
type engines struct {
	strings  *cryptoService.StringCipherService
	binaries *cryptoService.BinaryCipherService
}

func newEngines(t *testing.T, current string, version int, previous map[int]string) engines {
	t.Helper()
	ring, err := cryptoDomain.NewKeyRing(current, version, previous)
	require.NoError(t, err)

	strings, err := cryptoService.NewStringCipher(ring)
	require.NoError(t, err)
	binaries, err := cryptoService.NewBinaryCipher(ring)
	require.NoError(t, err)

	return engines{strings: strings, binaries: binaries}
}

func newKey(t *testing.T) string {
	t.Helper()
	key, err := cryptoService.GenerateKey()
	require.NoError(t, err)
	return key
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usersMapping() *rotationDomain.FieldMapping {
	return &rotationDomain.FieldMapping{
		Collection:   "users",
		StringFields: []rotationDomain.StringField{{Name: "email", HashField: "email_hash"}},
		BinaryFields: []rotationDomain.BinaryField{{Name: "avatar"}},
	}
}

func recordID(i int) string {
	return fmt.Sprintf("%04d", i)
}

func emailFor(i int) string {
	return fmt.Sprintf("user%d@example.com", i)
}

func avatarFor(i int) []byte {
	return []byte(fmt.Sprintf("avatar-bytes-%d", i))
}

// seedUsers stores n users encrypted by e under the "users" collection.
func seedUsers(t *testing.T, store *memRecordStore, e engines, n int) {
	t.Helper()
	codec := NewRecordCodec(e.strings, e.binaries)
	mapping := usersMapping()

	for i := 1; i <= n; i++ {
		rec := rotationDomain.NewRecord(recordID(i), "entity-"+recordID(i))
		rec.Values["email"] = emailFor(i)
		rec.Values["avatar"] = avatarFor(i)
		require.NoError(t, codec.EncryptFields(mapping, rec))
		store.put("users", rec.ID, rec.Values)
	}
}
