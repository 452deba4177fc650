package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t       *testing.T
	dataDir string
	root    string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	root := t.TempDir()
	t.Setenv("PERFEVAL_CONFIG", "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("EXPORTS_DIR", filepath.Join(root, "exports"))
	t.Setenv("BACKUPS_DIR", filepath.Join(root, "backups"))
	t.Setenv("LOGS_DIR", filepath.Join(root, "logs"))

	return &env{t: t, dataDir: filepath.Join(root, "data"), root: root}
}

// run executes one CLI invocation with stdin as the piped input.
func (e *env) run(stdin string, args ...string) (string, error) {
	e.t.Helper()

	c := &cli{
		in:         bufio.NewReader(strings.NewReader(stdin)),
		isTerminal: func(int) bool { return false },
		readPassword: func(int) ([]byte, error) {
			return nil, errors.New("not a terminal")
		},
	}
	cmd := newRootCmd(c)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", e.dataDir}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, err := e.run(stdin, args...)
	require.NoError(e.t, err, out)
	return out
}

var idPattern = regexp.MustCompile(`\(((?:u|c|ev)-[0-9a-f]{8})\)`)

func idFrom(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in %q", out)
	return m[1]
}

func TestInitAdmin_DefaultsThenIdempotent(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("", "init-admin", "--yes")
	assert.Contains(t, out, "Admin admin created")

	for _, name := range []string{"users.json", "criteria.json", "evaluations.json"} {
		_, err := os.Stat(filepath.Join(e.dataDir, name))
		assert.NoError(t, err, name)
	}

	out = e.mustRun("", "init-admin", "--yes")
	assert.Contains(t, out, "Admin already exists: admin")
}

func TestInitAdmin_Prompts(t *testing.T) {
	e := newEnv(t)

	// username typed, the rest accepted as defaults
	out := e.mustRun("boss\n\n\n\n", "init-admin")
	assert.Contains(t, out, "Username [admin]: ")
	assert.Contains(t, out, "Admin boss created")

	out = e.mustRun("", "users", "list", "--role", "admin")
	assert.Contains(t, out, "boss")
	assert.Contains(t, out, "System Administrator")
}

func TestUsers_CreateListResetDelete(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("password1\n", "users", "create",
		"--username", "eva", "--email", "eva@example.com", "--role", "evaluator", "--full-name", "Eva Evaluator")
	assert.Contains(t, out, "Created evaluator eva")
	id := idFrom(t, out)

	out = e.mustRun("", "users", "list")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Eva Evaluator")

	_, err := e.run("", "users", "create", "--username", "eva", "--email", "eva2@example.com", "--password", "password2")
	assert.Error(t, err, "duplicate username")

	_, err = e.run("", "users", "reset-password", id, "--password", "short")
	assert.Error(t, err)

	out = e.mustRun("longenough\n", "users", "reset-password", id)
	assert.Contains(t, out, "Password updated")

	out = e.mustRun("", "users", "delete", id)
	assert.Contains(t, out, "Deleted "+id)

	out = e.mustRun("", "users", "list")
	assert.NotContains(t, out, id)

	_, err = e.run("", "users", "delete", id)
	assert.Error(t, err)
}

func TestCriteria_AddListDelete(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("", "criteria", "add", "--name", "Quality", "--weight", "2", "--description", "Work quality")
	id := idFrom(t, out)

	out = e.mustRun("", "criteria", "list")
	assert.Contains(t, out, "Quality")
	assert.Contains(t, out, "Work quality")

	_, err := e.run("", "criteria", "add", "--name", "Bad", "--weight", "0")
	assert.Error(t, err)

	_, err = e.run("", "criteria", "add", "--weight", "1")
	assert.Error(t, err, "name is required")

	e.mustRun("", "criteria", "delete", id)
	out = e.mustRun("", "criteria", "list")
	assert.NotContains(t, out, "Quality")
}

// seed creates an evaluator, an employee and two criteria and returns their ids.
func seed(t *testing.T, e *env) (evaluator, employee, quality, teamwork string) {
	t.Helper()

	evaluator = idFrom(t, e.mustRun("", "users", "create",
		"--username", "eva", "--email", "eva@example.com", "--role", "evaluator", "--password", "password1"))
	employee = idFrom(t, e.mustRun("", "users", "create",
		"--username", "emma", "--email", "emma@example.com", "--full-name", "Emma Employee", "--password", "password1"))
	quality = idFrom(t, e.mustRun("", "criteria", "add", "--name", "Quality", "--weight", "2"))
	teamwork = idFrom(t, e.mustRun("", "criteria", "add", "--name", "Teamwork"))
	return
}

func TestEvaluations_CreateAndSummarize(t *testing.T) {
	e := newEnv(t)
	evaluator, employee, quality, teamwork := seed(t, e)

	// (5*2 + 2*1) / 3
	out := e.mustRun("", "evaluations", "create",
		"--employee", employee, "--evaluator", evaluator,
		"--score", quality+"=5", "--score", teamwork+"=2",
		"--status", "final", "--comments", "solid quarter")
	assert.Contains(t, out, "weighted score 4.00")

	out = e.mustRun("", "evaluations", "list", "--employee", employee)
	assert.Contains(t, out, "Emma Employee")
	assert.Contains(t, out, "eva")
	assert.Contains(t, out, "final")
	assert.Contains(t, out, "4.00")

	out = e.mustRun("", "evaluations", "list", "--status", "draft")
	assert.NotContains(t, out, "Emma Employee")

	out = e.mustRun("", "summary", employee)
	assert.Contains(t, out, "Emma Employee <emma@example.com>")
	assert.Contains(t, out, "1 (1 final)")
	assert.Contains(t, out, "Average score:     4.00")

	out = e.mustRun("", "summary")
	assert.Contains(t, out, "EMPLOYEE")
	assert.Contains(t, out, "emma@example.com")
}

func TestEvaluations_CreateRejectsBadReferences(t *testing.T) {
	e := newEnv(t)
	evaluator, employee, quality, _ := seed(t, e)

	_, err := e.run("", "evaluations", "create",
		"--employee", evaluator, "--evaluator", employee,
		"--score", quality+"=4", "--score", "c-00000000=3")
	require.Error(t, err)

	verr, ok := validation.As(err)
	require.True(t, ok)

	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"employee_id", "evaluator_id", "scores.c-00000000"}, fields)

	_, err = e.run("", "evaluations", "create",
		"--employee", employee, "--evaluator", evaluator, "--score", quality+"=9")
	require.Error(t, err)
	_, ok = validation.As(err)
	assert.True(t, ok, "out of range score")

	out := e.mustRun("", "evaluations", "list")
	assert.NotContains(t, out, "Emma")
}

func TestExportAndBackup(t *testing.T) {
	e := newEnv(t)
	evaluator, employee, quality, _ := seed(t, e)
	e.mustRun("", "evaluations", "create", "--employee", employee, "--evaluator", evaluator, "--score", quality+"=3")

	out := e.mustRun("", "export", "detail", "--output", "q3")
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(e.root, "exports", "q3.xlsx"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")), "xlsx is a zip")

	out = e.mustRun("", "export", "summary")
	_, err = os.Stat(strings.TrimSpace(out))
	assert.NoError(t, err)

	out = e.mustRun("", "backup")
	assert.Contains(t, out, "Backed up 3 files to "+filepath.Join(e.root, "backups", "backup_"))
}
