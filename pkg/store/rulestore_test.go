package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/rules"
	"github.com/Veraticus/colorout/pkg/testutil"
	"github.com/Veraticus/colorout/pkg/types"
)

func sampleRules() types.RuleSet {
	return types.NewRuleSet(
		types.NewRule(`^make\[\d+\]`, types.BuildHeader, false),
		types.NewRule(`panic:`, types.Error, true),
		types.NewRule(`deprecated`, types.Warning, true),
		types.NewRule(`(?<=TODO: )\w+`, types.Custom2, false),
	)
}

func TestRuleStore_LoadFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		reads  error
	}{
		{name: "missing key", values: map[string]string{}},
		{name: "empty value", values: map[string]string{PatternsKey: ""}},
		{name: "whitespace value", values: map[string]string{PatternsKey: "  \n"}},
		{name: "canonical empty array", values: map[string]string{PatternsKey: "[]"}},
		{name: "null document", values: map[string]string{PatternsKey: "null"}},
		{name: "corrupt document", values: map[string]string{PatternsKey: `[{"RegExPattern":`}},
		{name: "wrong shape", values: map[string]string{PatternsKey: `{"RegExPattern":"x"}`}},
		{name: "unknown classification", values: map[string]string{PatternsKey: `[{"RegExPattern":"x","ClassificationType":"Mauve"}]`}},
		{name: "read failure", values: map[string]string{}, reads: testutil.ErrMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			medium := testutil.NewFaultyStore(tt.values)
			medium.SetReadError(tt.reads)

			rs, stop := NewRuleStore(medium).Load()

			assert.Equal(t, rules.Defaults().Rules(), rs.Rules())
			assert.False(t, stop)
		})
	}
}

func TestRuleStore_StopOnBuildErrorFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "True", want: true},
		{value: "true", want: true},
		{value: "False", want: false},
		{value: "", want: false},
		{value: "yes", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			medium := testutil.NewFaultyStore(map[string]string{StopOnBuildErrorKey: tt.value})
			_, stop := NewRuleStore(medium).Load()
			assert.Equal(t, tt.want, stop)
		})
	}
}

func TestRuleStore_SaveWritesBothKeysTogether(t *testing.T) {
	medium := testutil.NewFaultyStore(nil)
	s := NewRuleStore(medium)

	require.NoError(t, s.Save(sampleRules(), true))

	assert.Equal(t, 1, medium.GetWriteCount())
	written := medium.LastWrite()
	assert.Equal(t, "True", written[StopOnBuildErrorKey])
	assert.Contains(t, written[PatternsKey], `"BuildHead"`)
}

func TestRuleStore_SaveHook(t *testing.T) {
	medium := testutil.NewFaultyStore(nil)
	s := NewRuleStore(medium)

	calls := 0
	var saved types.RuleSet
	s.OnSave(func(rs types.RuleSet) {
		calls++
		saved = rs
	})

	require.NoError(t, s.Save(sampleRules(), false))
	assert.Equal(t, 1, calls)
	assert.True(t, saved.Equal(sampleRules()))

	medium.SetWriteError(testutil.ErrMedium)
	err := s.Save(sampleRules(), false)
	require.ErrorIs(t, err, testutil.ErrMedium)
	assert.Equal(t, 1, calls, "hook must not run when persisting fails")
}

func TestRuleStore_RoundTrip(t *testing.T) {
	mediums := map[string]func(t *testing.T) interfaces.KeyValueStore{
		"memory": func(t *testing.T) interfaces.KeyValueStore {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) interfaces.KeyValueStore {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "settings.yaml"))
		},
		"sqlite": func(t *testing.T) interfaces.KeyValueStore {
			db, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return db
		},
	}

	sets := map[string]types.RuleSet{
		"sample":   sampleRules(),
		"defaults": rules.Defaults(),
		"single":   types.NewRuleSet(types.NewRule(`"quoted" \\ path`, types.Custom4, true)),
	}

	for mediumName, newMedium := range mediums {
		for setName, rs := range sets {
			for _, flag := range []bool{true, false} {
				medium := newMedium(t)
				s := NewRuleStore(medium)

				require.NoError(t, s.Save(rs, flag), "%s/%s", mediumName, setName)

				got, stop := s.Load()
				assert.True(t, rs.Equal(got), "%s/%s: expected %v but got %v", mediumName, setName, rs.Rules(), got.Rules())
				assert.Equal(t, flag, stop, "%s/%s", mediumName, setName)
			}
		}
	}
}

func TestRuleStore_EmptySetReloadsAsDefaults(t *testing.T) {
	s := NewRuleStore(NewMemoryStore())
	require.NoError(t, s.Save(types.RuleSet{}, false))

	got, _ := s.Load()
	assert.Equal(t, rules.Defaults().Rules(), got.Rules())
}
