package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/colorout/pkg/config"
	"github.com/Veraticus/colorout/pkg/process"
	"github.com/Veraticus/colorout/pkg/rules"
	"github.com/Veraticus/colorout/pkg/types"
)

// setupEnv isolates config and settings in a temp dir
func setupEnv(t *testing.T, storeKind string) string {
	t.Helper()
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	if storeKind == config.StoreSQLite {
		settings = filepath.Join(dir, "settings.db")
	}
	t.Setenv("COLOROUT_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("COLOROUT_STORE", storeKind)
	t.Setenv("COLOROUT_SETTINGS", settings)
	t.Setenv("COLOROUT_COLOR", config.ColorNever)
	t.Setenv("COLOROUT_SUMMARY", "")
	t.Setenv("COLOROUT_WATCH", "false")
	t.Setenv("COLOROUT_CACHE_SIZE", "")
	t.Setenv("COLOROUT_DEBUG", "")
	t.Setenv("NO_COLOR", "")
	t.Setenv(process.WrappedEnv, "")
	return settings
}

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func exportedRules(t *testing.T) types.RuleSet {
	t.Helper()
	code, out, errOut := execute(t, "", "rules", "export")
	require.Equal(t, 0, code, errOut)
	rs, err := rules.Unmarshal([]byte(out))
	require.NoError(t, err)
	return rs
}

func TestExecute_NoArgsPrintsHelp(t *testing.T) {
	setupEnv(t, config.StoreFile)

	code, out, _ := execute(t, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "colorout")
	assert.Contains(t, out, "classify")
}

func TestExecute_InvalidColorFlag(t *testing.T) {
	setupEnv(t, config.StoreFile)

	code, _, errOut := execute(t, "", "--color=rainbow", "classify")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "auto, always, never")
}

func TestRules_ListDefaults(t *testing.T) {
	setupEnv(t, config.StoreFile)

	code, out, errOut := execute(t, "", "rules", "list")
	require.Equal(t, 0, code, errOut)

	for _, rule := range rules.Defaults().Rules() {
		assert.Contains(t, out, rule.Pattern)
	}
	assert.Contains(t, out, "BuildHeader")
	assert.Contains(t, out, "Stop on build error: off")
	assert.NotContains(t, out, "\x1b[")
	assert.Empty(t, errOut)
}

func TestRules_Edit(t *testing.T) {
	setupEnv(t, config.StoreFile)
	defaults := rules.Defaults()

	code, out, errOut := execute(t, "", "rules", "add", "deprecated", "Warning", "--at", "0")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added rule")

	rs := exportedRules(t)
	require.Equal(t, defaults.Len()+1, rs.Len())
	assert.Equal(t, types.NewRule("deprecated", types.Warning, true), rs.At(0))

	code, _, errOut = execute(t, "", "rules", "add", "TODO", "custom2", "--case-sensitive")
	require.Equal(t, 0, code, errOut)
	rs = exportedRules(t)
	assert.Equal(t, types.NewRule("TODO", types.Custom2, false), rs.At(rs.Len()-1))

	code, _, errOut = execute(t, "", "rules", "remove", "0")
	require.Equal(t, 0, code, errOut)
	code, _, errOut = execute(t, "", "rules", "remove", "8")
	require.Equal(t, 0, code, errOut)
	assert.True(t, exportedRules(t).Equal(defaults))

	code, _, errOut = execute(t, "", "rules", "move", "0", "7")
	require.Equal(t, 0, code, errOut)
	rs = exportedRules(t)
	assert.Equal(t, defaults.At(0), rs.At(7))
	assert.Equal(t, defaults.At(1), rs.At(0))

	code, out, errOut = execute(t, "", "rules", "reset")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Restored 8 built-in rules")
	assert.True(t, exportedRules(t).Equal(defaults))
}

func TestRules_EditErrors(t *testing.T) {
	setupEnv(t, config.StoreFile)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid pattern", args: []string{"rules", "add", "(unclosed", "Error"}, wantErr: "invalid pattern"},
		{name: "unknown classification", args: []string{"rules", "add", "x", "Fatal"}, wantErr: "unknown classification"},
		{name: "index out of range", args: []string{"rules", "remove", "42"}, wantErr: "out of range"},
		{name: "move out of range", args: []string{"rules", "move", "0", "99"}, wantErr: "out of range"},
		{name: "bad index", args: []string{"rules", "remove", "first"}, wantErr: "invalid rule index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := execute(t, "", tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.wantErr)
			assert.True(t, exportedRules(t).Equal(rules.Defaults()))
		})
	}
}

func TestRules_AddForcedInvalidPattern(t *testing.T) {
	setupEnv(t, config.StoreFile)

	code, out, errOut := execute(t, "", "rules", "add", "(unclosed", "Error", "--force")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "warning: rule 8")

	code, out, errOut = execute(t, "", "rules", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "(unclosed")
	assert.Contains(t, errOut, "rule is skipped")

	// the remaining rules still classify
	code, out, errOut = execute(t, "main.c: error: x\n", "--color=always", "classify")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "\x1b[")
}

func TestRules_StopOnError(t *testing.T) {
	setupEnv(t, config.StoreFile)

	code, out, _ := execute(t, "", "rules", "stop-on-error")
	require.Equal(t, 0, code)
	assert.Equal(t, "off\n", out)

	code, out, _ = execute(t, "", "rules", "stop-on-error", "on")
	require.Equal(t, 0, code)
	assert.Equal(t, "Stop on build error: on\n", out)

	code, out, _ = execute(t, "", "rules", "stop-on-error")
	require.Equal(t, 0, code)
	assert.Equal(t, "on\n", out)

	code, _, errOut := execute(t, "", "rules", "stop-on-error", "maybe")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "expected on or off")

	// rules are untouched
	assert.True(t, exportedRules(t).Equal(rules.Defaults()))
}

func TestRules_ImportExport(t *testing.T) {
	dir := filepath.Dir(setupEnv(t, config.StoreFile))

	doc := `[{"RegExPattern":"^FAIL","ClassificationType":"LogError","IgnoreCase":false}]`

	code, out, errOut := execute(t, doc, "rules", "import", "-")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Imported 1 rules")
	assert.True(t, exportedRules(t).Equal(types.NewRuleSet(types.NewRule("^FAIL", types.Error, false))))

	path := filepath.Join(dir, "rules.json")
	data, err := rules.Marshal(rules.Defaults())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	code, _, errOut = execute(t, "", "rules", "import", path)
	require.Equal(t, 0, code, errOut)
	assert.True(t, exportedRules(t).Equal(rules.Defaults()))

	code, _, errOut = execute(t, `[{"RegExPattern":"x","ClassificationType":"Fatal"}]`, "rules", "import", "-")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid rules document")
	assert.True(t, exportedRules(t).Equal(rules.Defaults()))
}

func TestRules_Path(t *testing.T) {
	settings := setupEnv(t, config.StoreFile)

	code, out, _ := execute(t, "", "rules", "path")
	require.Equal(t, 0, code)
	assert.Equal(t, settings+"\n", out)
}

func TestRules_Stores(t *testing.T) {
	for _, kind := range []string{config.StoreFile, config.StoreSQLite} {
		t.Run(kind, func(t *testing.T) {
			setupEnv(t, kind)

			code, _, errOut := execute(t, "", "rules", "add", "^ok$", "Information")
			require.Equal(t, 0, code, errOut)

			rs := exportedRules(t)
			require.Equal(t, rules.Defaults().Len()+1, rs.Len())
			assert.Equal(t, "^ok$", rs.At(rs.Len()-1).Pattern)
		})
	}

	t.Run(config.StoreMemory, func(t *testing.T) {
		setupEnv(t, config.StoreMemory)

		code, _, errOut := execute(t, "", "rules", "add", "^ok$", "Information")
		require.Equal(t, 0, code, errOut)
		// nothing survives the process
		assert.True(t, exportedRules(t).Equal(rules.Defaults()))

		code, out, _ := execute(t, "", "rules", "path")
		require.Equal(t, 0, code)
		assert.Equal(t, "(memory)\n", out)
	})
}

func TestClassify(t *testing.T) {
	input := "=====\nmain.c:1: error: boom\nplain text\nwarning: unused\nno newline"

	t.Run("without color output is unchanged", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, out, errOut := execute(t, input, "classify")
		require.Equal(t, 0, code, errOut)
		assert.Equal(t, input, out)
		assert.Empty(t, errOut)
	})

	t.Run("color always", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, out, errOut := execute(t, input, "--color=always", "classify")
		require.Equal(t, 0, code, errOut)

		lines := strings.Split(out, "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[1], "\x1b[")
		assert.Equal(t, "plain text", lines[2])
		assert.Contains(t, lines[3], "\x1b[")
	})

	t.Run("summary", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, _, errOut := execute(t, input, "classify", "--summary")
		require.Equal(t, 0, code)
		assert.Contains(t, errOut, "colorout: 1 error, 1 warning (exit 0)")
		assert.Contains(t, errOut, "first error: main.c:1: error: boom")
	})
}

func TestRun(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getenv("CI") == "true" {
		t.Skip("PTY tests require Unix environment")
	}

	t.Run("exit code and output", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, out, _ := execute(t, "", "--", "sh", "-c", "echo 'error: boom'; exit 3")
		assert.Equal(t, 3, code)
		assert.Contains(t, out, "error: boom")
	})

	t.Run("flags after the command belong to it", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, out, _ := execute(t, "", "echo", "--summary")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "--summary")
	})

	t.Run("summary", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, _, errOut := execute(t, "", "--summary", "sh", "-c", "echo 'warning: careful'")
		assert.Equal(t, 0, code)
		assert.Contains(t, errOut, "0 errors, 1 warning (exit 0)")
	})

	t.Run("missing command", func(t *testing.T) {
		setupEnv(t, config.StoreFile)

		code, _, errOut := execute(t, "", "/nonexistent/build-tool")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "failed to start process")
	})

	t.Run("stop on build error", func(t *testing.T) {
		setupEnv(t, config.StoreFile)
		code, _, _ := execute(t, "", "rules", "stop-on-error", "on")
		require.Equal(t, 0, code)

		start := time.Now()
		code, out, _ := execute(t, "", "sh", "-c", "echo 'error: first'; sleep 10; echo after")
		assert.NotEqual(t, 0, code)
		assert.Contains(t, out, "error: first")
		assert.NotContains(t, out, "after")
		assert.Less(t, time.Since(start), 8*time.Second)
	})
}
