package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"steamwishlist/internal/collector"
	"steamwishlist/internal/components/telemetry"
	"steamwishlist/internal/reportstore"
	"steamwishlist/internal/wishlist"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	members    []wishlist.Member
	lists      map[string][]wishlist.Item
	failing    map[string]error
	membersErr error

	created   bool
	gotConfig Config
	gotTarget string
	gotMode   collector.Mode
}

func (f *fakeSource) Members(ctx context.Context, target string, mode collector.Mode) ([]wishlist.Member, error) {
	f.gotTarget = target
	f.gotMode = mode
	return f.members, f.membersErr
}

func (f *fakeSource) Wishlist(ctx context.Context, member wishlist.Member) ([]wishlist.Item, error) {
	if err, ok := f.failing[member.ID]; ok {
		return nil, err
	}
	return f.lists[member.ID], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		members: []wishlist.Member{
			{ID: "1", Name: "alice"},
			{ID: "2", Name: "bob"},
			{ID: "3", Name: "carol"},
		},
		lists: map[string][]wishlist.Item{
			"1": {{ID: "620", Title: "Portal 2"}, {ID: "70", Title: "Half-Life"}},
			"3": {{ID: "620", Title: "Portal 2"}},
		},
	}
}

type harness struct {
	source *fakeSource
	tel    *telemetry.RecordingAPI
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func (h harness) env() Env {
	return Env{
		Stdout: h.stdout,
		Stderr: h.stderr,
		Tel:    h.tel,
		Now: func() time.Time {
			return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		},
		NewSource: func(cfg Config, dump telemetry.InstrumentOutput, tel telemetry.API) (collector.Enumerator, collector.Fetcher, error) {
			h.source.created = true
			h.source.gotConfig = cfg
			return h.source, h.source, nil
		},
	}
}

func (h harness) run(t *testing.T, args ...string) int {
	t.Helper()
	return Run(context.Background(), args, h.env())
}

func newHarness() harness {
	return harness{
		source: newFakeSource(),
		tel:    &telemetry.RecordingAPI{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
}

func reportLines(t *testing.T, stdout string) []string {
	t.Helper()
	_, after, found := strings.Cut(stdout, "-------- Results : --------\n")
	require.True(t, found, "missing results header in:\n%s", stdout)
	after = strings.TrimRight(after, "\n")
	if after == "" {
		return nil
	}
	return strings.Split(after, "\n")
}

func TestRunFriends(t *testing.T) {
	h := newHarness()
	code := h.run(t, "76561197960287930")
	require.Equal(t, 0, code, h.stderr.String())

	require.True(t, h.source.created)
	require.Equal(t, "76561197960287930", h.source.gotTarget)
	require.Equal(t, collector.ModeFriends, h.source.gotMode)

	out := h.stdout.String()
	require.Contains(t, out, "Searching for friends...")
	require.Contains(t, out, "--- Found 3 member(s)")
	require.Contains(t, out, "--- 2 distinct item(s) in the wishlists")
	require.Contains(t, out, "--- 1 item(s) removed from list, 1 left")

	if diff := cmp.Diff([]string{
		"1 - score: 2 - Portal 2 --- Wanted by alice, carol",
	}, reportLines(t, out)); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}

func TestRunGroupWithMin(t *testing.T) {
	h := newHarness()
	code := h.run(t, "--group", "-m", "1", "valve")
	require.Equal(t, 0, code, h.stderr.String())

	require.Equal(t, collector.ModeGroup, h.source.gotMode)
	require.Contains(t, h.stdout.String(), "Searching for group members...")

	if diff := cmp.Diff([]string{
		"2 - score: 1 - Half-Life --- Wanted by alice",
		"1 - score: 2 - Portal 2 --- Wanted by alice, carol",
	}, reportLines(t, h.stdout.String())); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}

func TestRunThresholdAboveEverything(t *testing.T) {
	h := newHarness()
	code := h.run(t, "-m", "10", "someone")
	require.Equal(t, 0, code, h.stderr.String())
	require.Empty(t, reportLines(t, h.stdout.String()))
	require.Contains(t, h.stdout.String(), "--- 2 item(s) removed from list")
}

func TestRunDedupe(t *testing.T) {
	h := newHarness()
	h.source.lists["2"] = []wishlist.Item{
		{ID: "620", Title: "Portal 2"},
		{ID: "620", Title: "Portal 2"},
	}

	code := h.run(t, "someone")
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"1 - score: 4 - Portal 2 --- Wanted by alice, bob, bob, carol",
	}, reportLines(t, h.stdout.String()))

	h = newHarness()
	h.source.lists["2"] = []wishlist.Item{
		{ID: "620", Title: "Portal 2"},
		{ID: "620", Title: "Portal 2"},
	}
	code = h.run(t, "--dedupe", "someone")
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"1 - score: 3 - Portal 2 --- Wanted by alice, bob, carol",
	}, reportLines(t, h.stdout.String()))
}

func TestRunTitleConflictIsReported(t *testing.T) {
	h := newHarness()
	h.source.lists["2"] = []wishlist.Item{{ID: "620", Title: "Portal 2 (2011)"}}

	code := h.run(t, "someone")
	require.Equal(t, 0, code)
	require.Len(t, h.tel.Find(telemetry.KindWarning, "title-conflict"), 1)
	require.Contains(t, h.stdout.String(), "1 - score: 3 - Portal 2 --- Wanted by alice, bob, carol")
}

func TestRunTableFormat(t *testing.T) {
	h := newHarness()
	code := h.run(t, "--format", "table", "someone")
	require.Equal(t, 0, code, h.stderr.String())

	out := h.stdout.String()
	require.Contains(t, out, "Portal 2")
	require.Contains(t, out, "alice, carol")
	require.NotContains(t, out, "--- Wanted by")
}

func TestRunWishlistFailure(t *testing.T) {
	h := newHarness()
	h.source.failing = map[string]error{"1": errors.New("boom")}

	code := h.run(t, "-m", "1", "someone")
	require.Equal(t, 0, code)

	out := h.stdout.String()
	require.Contains(t, out, "... alice failed")
	require.Contains(t, out, "--- 1 wishlist(s) could not be fetched")
	require.Equal(t, []string{
		"1 - score: 1 - Portal 2 --- Wanted by carol",
	}, reportLines(t, out))
}

func TestRunMembersFailure(t *testing.T) {
	h := newHarness()
	h.source.membersErr = errors.New("profile is private")

	code := h.run(t, "someone")
	require.Equal(t, 1, code)
	require.Contains(t, h.stderr.String(), "profile is private")
	require.NotContains(t, h.stdout.String(), "Results")
}

func TestRunUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "missing target", args: nil},
		{name: "too many targets", args: []string{"a", "b"}},
		{name: "bad min", args: []string{"-m", "abc", "someone"}},
		{name: "unknown flag", args: []string{"--nope", "someone"}},
		{name: "bad format", args: []string{"--format", "xml", "someone"}},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness()
			code := h.run(t, test.args...)
			require.Equal(t, 1, code)
			require.False(t, h.source.created, "nothing should be fetched")
			require.Contains(t, h.stderr.String(), "Usage:")
		})
	}
}

func TestRunHelpExitsNonZero(t *testing.T) {
	h := newHarness()
	code := h.run(t, "-h")
	require.Equal(t, 1, code)
	require.False(t, h.source.created)
	require.Contains(t, h.stdout.String(), "Usage:")
	require.Contains(t, h.stdout.String(), "--group")
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wishlist.json5")
	err := os.WriteFile(path, []byte(`{
		// items wanted by a single member are kept too
		min_threshold: 1,
		timeout_seconds: 5,
	}`), 0644)
	require.NoError(t, err)

	h := newHarness()
	code := h.run(t, "--config", path, "someone")
	require.Equal(t, 0, code, h.stderr.String())
	require.Equal(t, 5, h.source.gotConfig.TimeoutSeconds)
	require.Equal(t, defaultConfig().BaseUrl, h.source.gotConfig.BaseUrl)
	require.Len(t, reportLines(t, h.stdout.String()), 2)

	h = newHarness()
	code = h.run(t, "--config", path, "-m", "2", "someone")
	require.Equal(t, 0, code)
	require.Len(t, reportLines(t, h.stdout.String()), 1)
}

func TestRunConfigFileZeroThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wishlist.json5")
	err := os.WriteFile(path, []byte(`{min_threshold: 0}`), 0644)
	require.NoError(t, err)

	h := newHarness()
	code := h.run(t, "--config", path, "someone")
	require.Equal(t, 0, code, h.stderr.String())
	require.Equal(t, 0, h.source.gotConfig.MinThreshold)
	require.Contains(t, h.stdout.String(), "Removing items wanted by fewer than 1 member(s)")
	require.Equal(t, []string{
		"2 - score: 1 - Half-Life --- Wanted by alice",
		"1 - score: 2 - Portal 2 --- Wanted by alice, carol",
	}, reportLines(t, h.stdout.String()))

	err = os.WriteFile(filepath.Join(dir, "wishlist.local.json5"), []byte(`{min_threshold: 2}`), 0644)
	require.NoError(t, err)
	h = newHarness()
	code = h.run(t, "--config", path, "someone")
	require.Equal(t, 0, code)
	require.Len(t, reportLines(t, h.stdout.String()), 1)
}

func TestRunExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")

	h := newHarness()
	code := h.run(t, "-m", "1", "--db", path, "someone")
	require.Equal(t, 0, code, h.stderr.String())
	require.Contains(t, h.stdout.String(), "--- report exported (run 1)")

	db, err := reportstore.Config{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	var target string
	var members int
	err = db.QueryRow("select target, member_count from report_run").Scan(&target, &members)
	require.NoError(t, err)
	require.Equal(t, "someone", target)
	require.Equal(t, 3, members)

	var lines int
	err = db.QueryRow("select count(*) from report_line").Scan(&lines)
	require.NoError(t, err)
	require.Equal(t, 2, lines)
}

func TestVerboseRequested(t *testing.T) {
	require.True(t, VerboseRequested([]string{"-v", "someone"}))
	require.True(t, VerboseRequested([]string{"someone", "--verbose"}))
	require.True(t, VerboseRequested([]string{"-gv", "valve"}))
	require.True(t, VerboseRequested([]string{"--verbose=1", "someone"}))
	require.True(t, VerboseRequested([]string{"--unknown", "-m", "3", "-v", "someone"}))
	require.False(t, VerboseRequested([]string{"--verbose=false", "someone"}))
	require.False(t, VerboseRequested([]string{"-m", "3", "someone"}))
	require.False(t, VerboseRequested([]string{"--", "-v"}))
}

func TestRunPassesVerboseToLogging(t *testing.T) {
	var calls []bool
	for _, args := range [][]string{
		{"-gv", "valve"},
		{"someone"},
	} {
		h := newHarness()
		env := h.env()
		env.InitLogging = func(verbose bool) {
			calls = append(calls, verbose)
		}
		code := Run(context.Background(), args, env)
		require.Equal(t, 0, code, h.stderr.String())
	}
	require.Equal(t, []bool{true, false}, calls)
}
