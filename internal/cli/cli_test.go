package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/gametrace/internal/adapters/http/collector"
	"github.com/okian/gametrace/internal/config"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
)

func localOptions(t *testing.T) (*RootOptions, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.StorageType = "local"
	cfg.DataDir = dir
	cfg.FlushIntervalMS = 0
	require.NoError(t, cfg.Validate())
	return &RootOptions{Config: cfg, Logger: logger.Nop()}, dir
}

func readLog(t *testing.T, dir string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "traces.csv"))
	require.NoError(t, err)
	return string(b)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "replay", "simulate", "collector"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRunLocal(t *testing.T) {
	opts, dir := localOptions(t)
	out := &bytes.Buffer{}
	cmd := NewRunCommand(opts)
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(strings.Join([]string{
		"accessed,screen,menu",
		"# comment",
		"",
		"used,item,potion,lives,3",
		"bogus",
		"flush",
		`selected,question,q1,response,yes\, sure`,
	}, "\n")))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "lines=5 traced=3 rejected=1 flushes=1\n", out.String())

	events, err := codec.UnmarshalCSVBatch(readLog(t, dir))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "menu", events[0].Target.ID)
	assert.Equal(t, int64(3), events[1].Result.Extensions["lives"].Int())
	assert.Equal(t, "yes, sure", events[2].Result.Response)
}

func TestRunNet(t *testing.T) {
	srv := collector.NewServer(collector.WithLogger(logger.Nop()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	opts, _ := localOptions(t)
	opts.Config.StorageType = "net"
	opts.Config.Host = ts.URL
	opts.Config.TrackingCode = "demo"
	opts.Config.StoreBackend = "memory"

	cmd := NewRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("accessed,screen,menu\ninteracted,npc,guard\n"))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	batches := srv.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, 2, strings.Count(batches[0].Body, "\n"))
}

func TestReplayCSV(t *testing.T) {
	opts, dir := localOptions(t)
	src := filepath.Join(t.TempDir(), "backup.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"1000,completed,level,L1,success,true,score,0.5\n2000,accessed,zone,z9,health,4.0\n"), 0o600))

	out := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(out)
	cmd.SetArgs([]string{src})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "replayed=2 rejected=0\n", out.String())

	events, err := codec.UnmarshalCSVBatch(readLog(t, dir))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, trace.True, events[0].Result.Success)
	assert.Equal(t, 0.5, events[0].Result.Score)
	assert.Equal(t, "zone", events[1].Target.Type)
	assert.Equal(t, 4.0, events[1].Result.Extensions["health"].Float())
}

func TestReplayXAPI(t *testing.T) {
	opts, dir := localOptions(t)
	base := "https://example.org/games/demo/"
	e := trace.NewEvent(time.UnixMilli(1000), trace.NewVerb(trace.VerbSelected), trace.Target{Type: "menu", ID: "main"})
	e.Result.Response = "start"
	payload, err := codec.MarshalXAPIBatch(context.Background(), trace.Policy{Strict: true}, []trace.Event{e}, codec.Session{ObjectBase: base})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "statements.json")
	require.NoError(t, os.WriteFile(src, []byte(payload), 0o600))

	cmd := NewReplayCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{src, "--object-base", base})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasSuffix(readLog(t, dir), ",selected,menu,main,response,start\n"))
}

func TestReplayMissingFile(t *testing.T) {
	opts, _ := localOptions(t)
	cmd := NewReplayCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{})
	require.Error(t, cmd.Execute())

	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.csv")})
	require.Error(t, cmd.Execute())
}

func TestSimulateLocal(t *testing.T) {
	opts, dir := localOptions(t)
	out := &bytes.Buffer{}
	cmd := NewSimulateCommand(opts)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--players", "2", "--levels", "1", "--actions", "3"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "attempted=10 accepted=10 rejected=0")

	events, err := codec.UnmarshalCSVBatch(readLog(t, dir))
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestCollectorShutsDownOnCancel(t *testing.T) {
	opts, _ := localOptions(t)
	opts.Config.StoreBackend = "memory"
	cmd := NewCollectorCommand(opts)
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0", "--user", "ana:pw", "--code", "demo", "--dedupe", "100"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestParseUsers(t *testing.T) {
	users, err := parseUsers([]string{"ana:pw", "bo:"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ana": "pw", "bo": ""}, users)

	_, err = parseUsers([]string{"nocolon"})
	assert.Error(t, err)
	_, err = parseUsers([]string{":pw"})
	assert.Error(t, err)
}
