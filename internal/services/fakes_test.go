package services_test

import (
	"context"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
	"marketadmin/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendVerification(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, u.Email)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *fakeEvents) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

// memStore keeps uploads in a map keyed by reference.
type memStore struct {
	mu      sync.Mutex
	n       int
	files   map[string]string
	deleted []string
	putErr  error
}

func newMemStore() *memStore { return &memStore{files: map[string]string{}} }

func (s *memStore) Put(_ context.Context, ns string, fh *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.n++
	ref := ns + "/" + strconv.Itoa(s.n) + "-" + fh.Filename
	s.files[ref] = fh.Filename
	return ref, nil
}

func (s *memStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[ref]; !ok {
		return errors.NotFoundf("file %q", ref)
	}
	delete(s.files, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func image(name string, size int) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "image/png")
	return &multipart.FileHeader{Filename: name, Header: h, Size: int64(size)}
}
