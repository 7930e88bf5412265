package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/law-makers/reviewwatch/internal/app"
	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const savedPage = `<html><body>
<div class="ant-table-content"><table><tbody class="ant-table-tbody"><tr><td>a</td></tr></tbody></table></div>
<div class="ant-table-content"><table><tbody class="ant-table-tbody">
	<tr><td>专家A</td><td>2024-05-01</td><td></td><td></td><td></td><td></td><td>良好</td><td>同意答辩</td></tr>
</tbody></table></div>
<div class="ant-table-footer">通过</div>
</body></html>`

// setup isolates config loading and returns a buffer capturing command output.
func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	keyring.MockInit()

	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("REVIEWWATCH_STATE_FILE", filepath.Join(dir, "last_result.json"))
	t.Setenv("REVIEWWATCH_NOTIFY_SINK", "log")
	t.Setenv("ZJUAM_ACCOUNT", "")
	t.Setenv("ZJUAM_PASSWORD", "")

	// Flag values survive between executions of the same command tree.
	if f := rootCmd.Flags().Lookup("help"); f != nil {
		require.NoError(t, f.Value.Set("false"))
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	return &out
}

func run(args ...string) int {
	// A nil slice would make cobra fall back to the test binary's flags.
	rootCmd.SetArgs(append([]string{}, args...))
	return Execute(context.Background())
}

func TestInspect(t *testing.T) {
	out := setup(t)
	path := filepath.Join(t.TempDir(), "results.html")
	require.NoError(t, os.WriteFile(path, []byte(savedPage), 0o644))

	require.Equal(t, 0, run("inspect", path))

	assert.Contains(t, out.String(), "专家A")
	assert.Contains(t, out.String(), "Fingerprint")
	_, err := os.Stat("last_result.json")
	assert.True(t, os.IsNotExist(err), "inspect must not write state")
}

func TestInspect_MissingFile(t *testing.T) {
	setup(t)
	assert.Equal(t, 1, run("inspect", filepath.Join(t.TempDir(), "missing.html")))
}

func TestNotifyTest(t *testing.T) {
	out := setup(t)
	require.Equal(t, 0, run("notify-test"))
	assert.Contains(t, out.String(), "Test notification sent via log")
}

func TestCredentials(t *testing.T) {
	out := setup(t)
	t.Setenv("ZJUAM_ACCOUNT", "22100001")
	t.Setenv("ZJUAM_PASSWORD", "secret")

	require.Equal(t, 0, run("credentials", "save"))
	assert.Contains(t, out.String(), "Credentials saved")

	got, err := keyring.Get("reviewwatch", "password")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.Equal(t, 0, run("credentials", "clear"))
	_, err = keyring.Get("reviewwatch", "password")
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestCredentials_NothingToSave(t *testing.T) {
	setup(t)
	assert.Equal(t, 1, run("credentials", "save"))
}

func TestInvalidConfigExitsNonZero(t *testing.T) {
	setup(t)
	t.Setenv("REVIEWWATCH_NOTIFY_SINK", "carrier-pigeon")
	assert.Equal(t, 1, run("notify-test"))
}

func TestHelp(t *testing.T) {
	out := setup(t)
	require.Equal(t, 0, run("--help"))

	assert.Contains(t, out.String(), "REVIEWWATCH")
	assert.Contains(t, out.String(), "inspect")
	assert.Contains(t, out.String(), "watch")
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n\nfive", 9)
	assert.Equal(t, "one two\nthree\nfour\n\nfive", got)
}

func TestInspect_NoTableShowsOutline(t *testing.T) {
	out := setup(t)
	t.Setenv("REVIEWWATCH_TIMEOUTS_ELEMENT", "10ms")
	path := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><h2>统一身份认证</h2></body></html>`), 0o644))

	assert.Equal(t, 1, run("inspect", path))
	assert.Contains(t, out.String(), "Page content")
	assert.Contains(t, out.String(), "## 统一身份认证")
}

// withPage makes the command tree drive page instead of Chrome.
func withPage(t *testing.T, page *browser.StaticPage) {
	t.Helper()
	appOptions = []app.Option{app.WithDriverFactory(func(*config.Config) (browser.Driver, error) {
		return page, nil
	})}
	t.Cleanup(func() { appOptions = nil })
}

func TestExecute_ClosesBrowserWhenInterrupted(t *testing.T) {
	out := setup(t)
	page, err := browser.StaticPageFromHTML(savedPage)
	require.NoError(t, err)
	withPage(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetArgs([]string{})

	assert.Equal(t, 0, Execute(ctx))
	assert.True(t, page.Closed())
	assert.NotContains(t, out.String(), "Results changed")
	_, err = os.Stat("last_result.json")
	assert.True(t, os.IsNotExist(err))
}

func TestExecute_ClosesBrowserAfterPanic(t *testing.T) {
	out := setup(t)
	page := browser.NewStaticPage(func(context.Context, string) (string, error) {
		panic("renderer crashed")
	}, nil)
	withPage(t, page)

	assert.Equal(t, 0, run())
	assert.True(t, page.Closed())
	assert.Contains(t, out.String(), "Cycle failed")
	assert.Contains(t, out.String(), "renderer crashed")
}
