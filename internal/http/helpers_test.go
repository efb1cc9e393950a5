package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"marketadmin/internal/domain"
	"marketadmin/internal/http/handlers"
	"marketadmin/internal/metrics"
	"marketadmin/internal/repos"
	"marketadmin/internal/services"
)

const (
	adminEmail = "admin@market.test"
	adminPass  = "adminpass1"
	agentEmail = "agent@market.test"
	agentPass  = "agentpass1"
)

type testEnv struct {
	app     *fiber.App
	db      *sqlx.DB
	users   *repos.UserRepo
	auth    *services.AuthService
	files   *memStore
	mail    *fakeMailer
	events  *fakeEvents
	metrics *metrics.Metrics

	adminID, adminToken string
	agentID, agentToken string
}

// newTestEnv wires the real routes against an in-memory database with one
// admin and one agent account.
func newTestEnv(t *testing.T, loginGuards ...fiber.Handler) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repos.SeedAdmin(db, adminEmail, adminPass); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	env := &testEnv{
		db:      db,
		users:   repos.NewUserRepo(db),
		files:   newMemStore(),
		mail:    &fakeMailer{},
		events:  &fakeEvents{},
		metrics: metrics.New(),
	}
	env.auth, err = services.NewAuthService(env.users, "test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Use(env.metrics.Middleware())
	app.Get("/metrics", env.metrics.Handler())
	handlers.NewDeps(db, env.auth, env.files, env.mail, env.events, env.metrics).Mount(app, loginGuards...)
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	})
	env.app = app

	ctx := context.Background()
	admin, err := env.users.ByEmail(ctx, adminEmail)
	if err != nil {
		t.Fatal(err)
	}
	env.adminID = admin.ID
	env.adminToken, _ = env.auth.Token(admin.ID)

	env.agentID = env.createUser(t, "Agent Smith", agentEmail, agentPass, domain.RoleAgent)
	env.agentToken, _ = env.auth.Token(env.agentID)
	return env
}

func (e *testEnv) createUser(t *testing.T, name, email, password, role string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &domain.User{ID: "u-" + strings.Split(email, "@")[0], Name: name, Email: email, Phone: "555-0100", Hash: string(h)}
	if err := e.users.CreateWithRole(context.Background(), u, role); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u.ID
}

func (e *testEnv) userCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatal(err)
	}
	return n
}

func (e *testEnv) serviceCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM services`); err != nil {
		t.Fatal(err)
	}
	return n
}

type payload map[string]any

// do sends a request and decodes the JSON response body.
func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (int, payload) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: non-JSON body %q", method, path, raw)
		}
	}
	return resp.StatusCode, out
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, v any) (int, payload) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return e.do(t, method, path, token, bytes.NewReader(b), fiber.MIMEApplicationJSON)
}

type upload struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pw.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func pngUpload(field string) upload {
	return upload{field: field, name: "photo.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nfake")}
}

func errorsOf(t *testing.T, body payload) map[string]any {
	t.Helper()
	errs, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("no field errors in %v", body)
	}
	return errs
}

// ---------- fakes ----------

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

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakeEvents) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakeEvents) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

type memStore struct {
	mu    sync.Mutex
	n     int
	files map[string]bool
}

func newMemStore() *memStore { return &memStore{files: map[string]bool{}} }

func (s *memStore) Put(_ context.Context, ns string, fh *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ref := ns + "/" + strconv.Itoa(s.n) + "-" + fh.Filename
	s.files[ref] = true
	return ref, nil
}

func (s *memStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.files[ref] {
		return errors.NotFoundf("file %q", ref)
	}
	delete(s.files, ref)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// ---------- log capture ----------

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Status int            `json:"status"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}


func stringsReader(s string) io.Reader { return strings.NewReader(s) }
