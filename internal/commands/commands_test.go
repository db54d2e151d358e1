package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/runlog"
)

var binaryPath string

const fixture = "../importer/testdata/export_2024-05.csv"

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "hibiscus-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "hibiscus")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/hibiscus")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runHibiscus(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "LOG_LEVEL=warn")
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// project initializes a project with a bank account matching the fixture and
// returns its directory and the --config flag pointing at it.
func project(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	out, err := runHibiscus(t, nil, "init", dir, "--invoice-regex", "(4802[0-9]{8})")
	require.NoError(t, err, out)

	cfg := []string{"--config", filepath.Join(dir, "hibiscus.yaml")}
	out, err = runHibiscus(t, nil, append([]string{"account", "add", "--name", "Main",
		"--account-no", "1234567890", "--routing-no", "COBADEFFXXX"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Bank account 1 created")
	return dir, cfg
}

func copyFixture(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	path := filepath.Join(dir, "export_2024-05.csv")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runHibiscus(t, nil, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runHibiscus(t, nil, "init", dir, "--language", "de", "--invoice-regex", "(4802[0-9]{8})")
	require.NoError(t, err, out)

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	_, err = os.Stat(filepath.Join(dir, "hibiscus.db"))
	assert.NoError(t, err, "database should be created")

	cfg, err := config.Load(filepath.Join(dir, "hibiscus.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Language)
	assert.Equal(t, "(4802[0-9]{8})", cfg.Matching.SalesInvoiceMatchRegex)
	assert.True(t, cfg.Hibiscus.ValidateDupsTrxID)
}

func TestInit_RejectsBadPattern(t *testing.T) {
	out, err := runHibiscus(t, nil, "init", t.TempDir(), "--invoice-regex", "4802[0-9]{8}")
	require.Error(t, err)
	assert.Contains(t, out, "exactly one capture group")
}

func TestRun_MatchCreatePaymentsAndPrepare(t *testing.T) {
	dir, cfg := project(t)
	out, err := runHibiscus(t, nil, append([]string{"invoice", "add", "480200000001", "--total", "1234.56"}, cfg...)...)
	require.NoError(t, err, out)

	file := copyFixture(t, t.TempDir())
	out, err = runHibiscus(t, nil, append([]string{"run", file, "--match", "--create-payments"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 lines, 1 matched, 0 noted")
	assert.Contains(t, out, "1 payments created")

	out, err = runHibiscus(t, nil, append([]string{"lines", "1"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "1234.56")
	assert.Contains(t, out, "Exact match")

	out, err = runHibiscus(t, nil, append([]string{"prepare", "1"}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "2 line(s) must be matched or get a charge: 1002, 1003")

	entries, err := runlog.Read(filepath.Join(dir, "logs", "run-log.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, runlog.StatusOK, e.Status, e.Step)
	}
}

func TestPrepare_German(t *testing.T) {
	_, cfg := project(t)
	file := copyFixture(t, t.TempDir())
	out, err := runHibiscus(t, nil, append([]string{"run", file}, cfg...)...)
	require.NoError(t, err, out)

	out, err = runHibiscus(t, []string{"HIBISCUS_LANGUAGE=de"}, append([]string{"prepare", "1"}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "3 Zeile(n) müssen zugeordnet werden oder eine Gebühr erhalten: 1001, 1002, 1003")
}

func TestRun_SecondLoadIsDuplicate(t *testing.T) {
	_, cfg := project(t)
	file := copyFixture(t, t.TempDir())
	out, err := runHibiscus(t, nil, append([]string{"run", file}, cfg...)...)
	require.NoError(t, err, out)

	out, err = runHibiscus(t, nil, append([]string{"run", file}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "pipeline step 2 (load) failed")
	assert.Contains(t, out, "The line 1001 was already loaded in Bank Statement")
}

func TestRun_UnknownBankAccount(t *testing.T) {
	dir := t.TempDir()
	out, err := runHibiscus(t, nil, "init", dir)
	require.NoError(t, err, out)

	file := copyFixture(t, t.TempDir())
	out, err = runHibiscus(t, nil, "run", file, "--config", filepath.Join(dir, "hibiscus.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "Line 2 -> Bank Not Found Account=1234567890, Routing=COBADEFFXXX")
}

func TestRun_Dir(t *testing.T) {
	dir, cfg := project(t)
	importDir := filepath.Join(dir, "import")
	copyFixture(t, importDir)

	out, err := runHibiscus(t, nil, append([]string{"run", "--dir", importDir}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "export_2024-05.csv (run ")

	_, err = os.Stat(filepath.Join(importDir, "export_2024-05.csv"))
	assert.True(t, os.IsNotExist(err), "file should be moved")
	_, err = os.Stat(filepath.Join(importDir, "processed", "export_2024-05.csv"))
	assert.NoError(t, err)
}

func TestRun_NeedsFileOrDir(t *testing.T) {
	_, cfg := project(t)
	out, err := runHibiscus(t, nil, append([]string{"run"}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "pass either a file or --dir")
}

func TestLoad_StagesOnly(t *testing.T) {
	_, cfg := project(t)
	file := copyFixture(t, t.TempDir())

	out, err := runHibiscus(t, nil, append([]string{"load", file}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Staged 3 rows")

	out, err = runHibiscus(t, nil, append([]string{"lines", "1"}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "not found")

	out, err = runHibiscus(t, nil, append([]string{"load", file}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, "The line 1001 was already loaded in the import table")

	out, err = runHibiscus(t, nil, append([]string{"load", file, "--delete-old"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted 4 staged rows", "the duplicate row stays staged")
}

func TestMatch_VendorPayment(t *testing.T) {
	_, cfg := project(t)
	env := []string{"HIBISCUS_MATCHER=vendor-sepa-payment", "DATE_RANGE_MATCHER=2"}
	out, err := runHibiscus(t, env, append([]string{"partner", "add", "Office Supplies KG",
		"--iban", "DE89370400440532013000"}, cfg...)...)
	require.NoError(t, err, out)
	out, err = runHibiscus(t, env, append([]string{"payment", "add", "P-77", "--amount", "12.30",
		"--date", "2024-05-05", "--partner", "1"}, cfg...)...)
	require.NoError(t, err, out)

	file := copyFixture(t, t.TempDir())
	out, err = runHibiscus(t, env, append([]string{"run", file}, cfg...)...)
	require.NoError(t, err, out)

	out, err = runHibiscus(t, env, append([]string{"match", "1"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Statement 1: 3 lines, 1 matched, 0 noted")

	out, err = runHibiscus(t, env, append([]string{"lines", "1"}, cfg...)...)
	require.NoError(t, err, out)
	var line1002 string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "1002") {
			line1002 = l
		}
	}
	assert.Contains(t, line1002, "-12.30")
	assert.Contains(t, line1002, "Exact match")
}

func TestRun_MatcherList(t *testing.T) {
	_, cfg := project(t)
	env := []string{"HIBISCUS_MATCHER=invoice-in-memo,vendor-sepa-payment", "DATE_RANGE_MATCHER=2"}
	out, err := runHibiscus(t, env, append([]string{"invoice", "add", "480200000001", "--total", "1234.56"}, cfg...)...)
	require.NoError(t, err, out)
	out, err = runHibiscus(t, env, append([]string{"partner", "add", "Office Supplies KG",
		"--iban", "DE89370400440532013000"}, cfg...)...)
	require.NoError(t, err, out)
	out, err = runHibiscus(t, env, append([]string{"payment", "add", "P-77", "--amount", "12.30",
		"--date", "2024-05-05", "--partner", "1"}, cfg...)...)
	require.NoError(t, err, out)

	file := copyFixture(t, t.TempDir())
	out, err = runHibiscus(t, env, append([]string{"run", file, "--match"}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 lines, 2 matched, 0 noted")
}

func TestMatch_InvalidID(t *testing.T) {
	_, cfg := project(t)
	out, err := runHibiscus(t, nil, append([]string{"match", "abc"}, cfg...)...)
	require.Error(t, err)
	assert.Contains(t, out, `invalid statement id "abc"`)
}

func TestAccountImport(t *testing.T) {
	dir := t.TempDir()
	out, err := runHibiscus(t, nil, "init", dir)
	require.NoError(t, err, out)
	cfg := []string{"--config", filepath.Join(dir, "hibiscus.yaml")}

	file := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(file, []byte("name,account_no,routing_no\nMain,1234567890,COBADEFFXXX\n"), 0o644))

	out, err = runHibiscus(t, nil, append([]string{"account", "import", file}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 bank accounts created, 0 already known")

	out, err = runHibiscus(t, nil, append([]string{"account", "import", file}, cfg...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 bank accounts created, 1 already known")

	out, err = runHibiscus(t, nil, append([]string{"run", copyFixture(t, t.TempDir())}, cfg...)...)
	require.NoError(t, err, out)
}
