package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdminOperationsAreCounted(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/admin/users", env.agentToken, nil, "")
	env.do(t, http.MethodDelete, "/api/admin/users/"+env.adminID, env.adminToken, nil, "")
	env.do(t, http.MethodDelete, "/api/admin/users/"+env.agentID, env.adminToken, nil, "")

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	out := string(raw)
	for _, want := range []string{
		`marketadmin_admin_operations_total{operation="admin.users.delete",outcome="denied"} 1`,
		`marketadmin_admin_operations_total{operation="admin.users.delete",outcome="ok"} 1`,
		`marketadmin_admin_operations_total{operation="access.admin",outcome="denied"} 1`,
		`marketadmin_http_requests_total{method="DELETE",route="/api/admin/users/:id",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in\n%s", want, out)
		}
	}
	// labels recorded for earlier requests must not change with later ones
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "marketadmin_http_requests_total{") {
			continue
		}
		if !strings.Contains(line, `method="GET"`) && !strings.Contains(line, `method="DELETE"`) {
			t.Errorf("corrupted method label: %s", line)
		}
	}
}
