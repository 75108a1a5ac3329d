package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate points config and data at temp dirs and returns the data dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ARBOR_USER", "")
	t.Setenv("ARBOR_FORMAT", "")
	t.Setenv("ARBOR_CONFIG", "")
	return t.TempDir()
}

type cliEnv struct {
	t   *testing.T
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	return &cliEnv{t: t, dir: isolate(t)}
}

func (e *cliEnv) run(args ...string) ([]byte, []byte, error) {
	e.t.Helper()
	return runCLI(e.t, append([]string{"--data-dir", e.dir}, args...))
}

func (e *cliEnv) mustRun(args ...string) map[string]any {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("command failed: arbor %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		e.t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		e.t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data; got %#v", env["data"])
	}
	return m
}

func dataList(t *testing.T, env map[string]any) []map[string]any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected list data; got %#v", env["data"])
	}
	out := make([]map[string]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.(map[string]any))
	}
	return out
}

func ids(xs []map[string]any) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		out = append(out, x["id"].(string))
	}
	return out
}

func TestNodesLifecycle(t *testing.T) {
	e := newCLIEnv(t)

	login := dataMap(t, e.mustRun("login", "--user", "u1"))
	rootID, _ := login["rootNodeId"].(string)
	if rootID == "" {
		t.Fatalf("expected rootNodeId; got %#v", login)
	}
	if again := dataMap(t, e.mustRun("nodes", "root")); again["id"] != rootID {
		t.Fatalf("root id changed: %v != %v", again["id"], rootID)
	}

	a := dataMap(t, e.mustRun("nodes", "create", "--content", "A"))
	if a["parentId"] != rootID {
		t.Fatalf("expected default parent to be root; got %#v", a["parentId"])
	}
	aID := a["id"].(string)
	b := dataMap(t, e.mustRun("nodes", "create", "--content", "B", "--parent", aID))
	bID := b["id"].(string)

	kids := dataList(t, e.mustRun("nodes", "list", "--parent", aID))
	if got := ids(kids); len(got) != 1 || got[0] != bID {
		t.Fatalf("children of A: %v", got)
	}
	if root := dataMap(t, e.mustRun("nodes", "show", rootID)); root["hasChildren"] != true {
		t.Fatalf("expected root to have children: %#v", root)
	}

	ren := e.mustRun("nodes", "rename", bID, "--content", "B2")
	if dataMap(t, ren)["content"] != "B2" || ren["meta"].(map[string]any)["changed"] != true {
		t.Fatalf("rename: %#v", ren)
	}
	if same := e.mustRun("nodes", "rename", bID, "--content", "B2"); same["meta"].(map[string]any)["changed"] != false {
		t.Fatalf("expected idempotent rename to report no change: %#v", same)
	}

	e.mustRun("nodes", "archive", bID)
	if got := dataList(t, e.mustRun("nodes", "list", "--parent", aID)); len(got) != 0 {
		t.Fatalf("archived node still listed: %v", ids(got))
	}
	if got := dataList(t, e.mustRun("nodes", "list", "--parent", aID, "--archived")); len(got) != 1 {
		t.Fatalf("expected archived node with --archived; got %v", ids(got))
	}
	for _, n := range dataList(t, e.mustRun("nodes", "list")) {
		if n["id"] == aID && n["hasChildren"] != false {
			t.Fatalf("archived-only children should not count: %#v", n)
		}
	}
	e.mustRun("nodes", "unarchive", bID)

	all := ids(dataList(t, e.mustRun("nodes", "list")))
	if len(all) != 3 {
		t.Fatalf("expected root, A and B; got %v", all)
	}
}

func TestNodesMoveRejectsCycle(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")

	a := dataMap(t, e.mustRun("nodes", "create", "--content", "A", "--top-level"))["id"].(string)
	b := dataMap(t, e.mustRun("nodes", "create", "--content", "B", "--parent", a))["id"].(string)

	_, stderr, err := e.run("nodes", "move", a, "--parent", b)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(string(stderr), "ancestor") {
		t.Fatalf("expected cycle message on stderr; got %q", stderr)
	}

	moved := dataMap(t, e.mustRun("nodes", "move", b, "--top-level"))
	if _, ok := moved["parentId"]; ok {
		t.Fatalf("expected top-level node; got %#v", moved)
	}
	if _, _, err := e.run("nodes", "move", b); err == nil {
		t.Fatalf("expected error without --parent or --top-level")
	}
}

func TestCommandsRequireSession(t *testing.T) {
	e := newCLIEnv(t)

	_, stderr, err := e.run("nodes", "list")
	if err == nil {
		t.Fatalf("expected error without a session")
	}
	if !strings.Contains(string(stderr), "arbor login") {
		t.Fatalf("expected login hint; got %q", stderr)
	}
}

func TestLoginWithoutUserOrTerminalFails(t *testing.T) {
	e := newCLIEnv(t)
	if isTerminal() {
		t.Skip("stdin is a terminal")
	}
	if _, _, err := e.run("login"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSyncQueueAndReport(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")
	e.mustRun("nodes", "create", "--content", "A")

	pending := dataList(t, e.mustRun("sync", "pending"))
	// Root + A.
	if len(pending) != 2 {
		t.Fatalf("expected 2 queued writes; got %d", len(pending))
	}
	if pending[0]["op"] != "PUT" || pending[0]["table"] != "nodes" {
		t.Fatalf("unexpected first entry: %#v", pending[0])
	}
	last := int64(pending[len(pending)-1]["seq"].(float64))

	ack := dataMap(t, e.mustRun("sync", "ack", "--through", strconv.FormatInt(last, 10)))
	if ack["acked"].(float64) != 2 {
		t.Fatalf("ack: %#v", ack)
	}
	if got := dataList(t, e.mustRun("sync", "pending")); len(got) != 0 {
		t.Fatalf("expected empty queue; got %d", len(got))
	}

	rep := dataMap(t, e.mustRun("sync", "report", "--connected", "--downloading", "--downloaded", "5", "--total", "10"))
	if rep["connected"] != true {
		t.Fatalf("report: %#v", rep)
	}
	prog := rep["downloadProgress"].(map[string]any)
	if prog["downloadedFraction"].(float64) != 0.5 {
		t.Fatalf("progress: %#v", prog)
	}

	st := dataMap(t, e.mustRun("status"))
	if st["allNodes"].(float64) != 2 || st["userNodes"].(float64) != 2 || st["pendingUploads"].(float64) != 0 {
		t.Fatalf("status counts: %#v", st)
	}
}

func TestStatusTextFormat(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")

	e.mustRun("sync", "report", "--downloading", "--downloaded", "1", "--total", "3")

	stdout, stderr, err := e.run("--format", "text", "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, stderr)
	}
	out := string(stdout)
	for _, want := range []string{"user", "u1", "offline", "myNodes", "1/3 (33.33%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestUACommand(t *testing.T) {
	e := newCLIEnv(t)

	env := e.mustRun("ua",
		"--ua", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"--ch-ua", `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`,
		"--ch-platform", `"Windows"`,
	)
	info := dataMap(t, env)["info"].([]any)
	if len(info) != 2 || info[0] != "Chrome/124" || info[1] != "windows" {
		t.Fatalf("info: %#v", info)
	}

	self := dataMap(t, e.mustRun("ua"))
	if !strings.HasPrefix(self["navigator"].(map[string]any)["userAgent"].(string), "arbor/") {
		t.Fatalf("default navigator: %#v", self)
	}
}

func TestBackupRefusesExistingDest(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")

	dest := filepath.Join(t.TempDir(), "copies", "arbor.sqlite")
	e.mustRun("backup", dest)
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup file: %v", err)
	}
	if _, _, err := e.run("backup", dest); err == nil {
		t.Fatalf("expected error when dest exists")
	}
}

func TestConfigShowYAML(t *testing.T) {
	e := newCLIEnv(t)

	stdout, stderr, err := e.run("--format", "yaml", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, stderr)
	}
	out := string(stdout)
	if !strings.Contains(out, "dataDir: "+e.dir) {
		t.Fatalf("expected flag data dir in:\n%s", out)
	}
	if !strings.Contains(out, "glyphs: unicode") {
		t.Fatalf("expected default glyphs in:\n%s", out)
	}
}

func TestShowRenderMarkdown(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")
	id := dataMap(t, e.mustRun("nodes", "create", "--content", "# Shopping\n\n- milk"))["id"].(string)

	stdout, stderr, err := e.run("nodes", "show", id, "--render")
	if err != nil {
		t.Fatalf("show --render: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), "Shopping") || !strings.Contains(string(stdout), "milk") {
		t.Fatalf("rendered output:\n%s", stdout)
	}
}

func TestWatchVisibleStopsAfterCount(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")
	e.mustRun("nodes", "create", "--content", "A", "--top-level")

	stdout, stderr, err := e.run("watch", "visible", "--count", "1")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, stderr)
	}
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one result line; got %d:\n%s", len(lines), stdout)
	}
	var env map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if meta := env["meta"].(map[string]any); meta["query"] != "visible_nodes" || meta["seq"].(float64) != 1 {
		t.Fatalf("meta: %#v", meta)
	}
	// Not focused: every node of the user (root + A).
	if got := env["data"].([]any); len(got) != 2 {
		t.Fatalf("expected 2 nodes; got %d", len(got))
	}
}

func TestLogoutClearsSession(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "--user", "u1")
	e.mustRun("logout")
	if _, _, err := e.run("nodes", "root"); err == nil {
		t.Fatalf("expected error after logout")
	}
}
