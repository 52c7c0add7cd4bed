package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/naka-gawa/coverage-stats/internal/usecase"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `{
	"System repos": {"isComponent": false, "reposCoverage": {
		"r1": {"lines-valid": 100, "lines-covered": 50},
		"r2": {"lines-valid": 40, "lines-covered": 10},
		"r3": {"lines-valid": 10, "lines-covered": 9}
	}},
	"c1": {"isComponent": true, "bugs": 0, "reposCoverage": {"a": {"lines-valid": 10, "lines-covered": 5}, "b": {"lines-valid": 20, "lines-covered": 20}}},
	"c2": {"isComponent": true, "bugs": 3, "reposCoverage": {"c": {"lines-valid": 50, "lines-covered": 10}}},
	"c3": {"isComponent": true, "bugs": 1, "reposCoverage": {}}
}`

func testConfig(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.Set("output_dir", "out")
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	return cfg
}

func testFs(t *testing.T, cfg Config) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, cfg.Input, []byte(testDataset), 0o644))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "obfuscated_data.json", cfg.Input)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "obfuscated_data.json", cfg.Obfuscate.Output)

	genCfg, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultOutputFiles(), genCfg.Files)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("COVSTATS_TEST_INPUT", "elsewhere.json")
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COVSTATS_TEST")
	v.AutomaticEnv()
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere.json", cfg.Input)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("input", "")
	_, err := loadConfig(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("files.everything.csv", "x.csv")
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	_, err = cfg.GeneratorConfig()
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
}

func TestRunDigest(t *testing.T) {
	testCases := []struct {
		name         string
		kind         domain.ReportKind
		all          bool
		output       string
		expectedFile string
		expectedOut  string
		expectedErr  error
	}{
		{
			name:         "csv report",
			kind:         domain.KindZeroBugs,
			output:       "csv",
			expectedFile: "out/zero_bugs_comp.csv",
			expectedOut:  "Done!",
		},
		{
			name:         "chart report prints correlation",
			kind:         domain.KindSystemRepos,
			output:       "chart",
			expectedFile: "out/system_repos_chart.html",
			expectedOut:  "Pearson r:",
		},
		{
			name:         "chart with too few points",
			kind:         domain.KindWithBugs,
			output:       "chart",
			expectedFile: "out/with_bugs_comp_chart.html",
			expectedOut:  "Correlation not computed (1 points)",
		},
		{
			name:         "all reports",
			all:          true,
			output:       "csv",
			expectedFile: "out/component.csv",
			expectedOut:  "component: 4 rows",
		},
		{
			name:        "component chart is unsupported",
			kind:        domain.KindComponent,
			output:      "chart",
			expectedErr: domain.ErrUnsupportedOutput,
		},
		{
			name:        "all with chart is unsupported",
			all:         true,
			output:      "chart",
			expectedErr: domain.ErrUnsupportedOutput,
		},
		{
			name:        "unknown output",
			kind:        domain.KindGeneric,
			output:      "svg",
			expectedErr: domain.ErrInvalidSelector,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			fs := testFs(t, cfg)
			var stdout bytes.Buffer

			err := runDigest(context.Background(), digestParams{
				kind:   tc.kind,
				all:    tc.all,
				output: tc.output,
				cfg:    cfg,
				fs:     fs,
				stdout: &stdout,
				logger: log.New(io.Discard),
			})
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				exists, _ := afero.DirExists(fs, "out")
				assert.False(t, exists, "no output may be written on failure")
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), tc.expectedOut)
			exists, err := afero.Exists(fs, tc.expectedFile)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestRunDigest_MissingInput(t *testing.T) {
	cfg := testConfig(t)
	err := runDigest(context.Background(), digestParams{
		kind:   domain.KindGeneric,
		output: "csv",
		cfg:    cfg,
		fs:     afero.NewMemMapFs(),
		stdout: io.Discard,
		logger: log.New(io.Discard),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestCommandLine_Selectors(t *testing.T) {
	testCases := []struct {
		name          string
		args          []string
		expectedErr   error
		expectedMsg   string
		expectedUsage bool
		expectedOut   string
	}{
		{
			name:          "mutually exclusive selectors",
			args:          []string{"digest", "-s", "-z"},
			expectedMsg:   "none of the others can be",
			expectedUsage: true,
		},
		{
			name:          "selector with --all",
			args:          []string{"digest", "-g", "--all"},
			expectedMsg:   "none of the others can be",
			expectedUsage: true,
		},
		{
			name:          "missing selector",
			args:          []string{"digest"},
			expectedMsg:   "at least one of the flags",
			expectedUsage: true,
		},
		{
			name:          "unknown output",
			args:          []string{"digest", "-g", "-o", "pdf"},
			expectedErr:   domain.ErrInvalidSelector,
			expectedUsage: true,
		},
		{
			name:          "unknown count element",
			args:          []string{"count", "-e", "foo"},
			expectedErr:   domain.ErrInvalidSelector,
			expectedUsage: true,
		},
		{
			name:          "missing count element",
			args:          []string{"count"},
			expectedMsg:   `required flag(s) "element" not set`,
			expectedUsage: true,
		},
		{
			name:        "valid digest",
			args:        []string{"digest", "-z"},
			expectedOut: "Done!",
		},
		{
			name:        "valid count",
			args:        []string{"count", "-e", "components"},
			expectedOut: "Number of components: 3",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "obfuscated_data.json", []byte(testDataset), 0o644))
			prevFs := appFs
			appFs = fs
			t.Cleanup(func() { appFs = prevFs })

			var out bytes.Buffer
			root := newRootCmd()
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tc.args)
			err := root.Execute()

			usages := strings.Count(out.String(), "Usage:")
			if !tc.expectedUsage {
				require.NoError(t, err)
				assert.Zero(t, usages)
				assert.Contains(t, out.String(), tc.expectedOut)
				return
			}
			require.Error(t, err)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			}
			if tc.expectedMsg != "" {
				assert.Contains(t, err.Error(), tc.expectedMsg)
			}
			assert.Equal(t, 1, usages, "usage should be printed once")
			exists, _ := afero.Exists(fs, "zero_bugs_comp.csv")
			assert.False(t, exists)
		})
	}
}

func TestRunCount(t *testing.T) {
	cfg := testConfig(t)
	fs := testFs(t, cfg)

	elements, err := parseElements("all")
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, runCount(countParams{
		elements: elements,
		input:    cfg.Input,
		fs:       fs,
		stdout:   &stdout,
		logger:   log.New(io.Discard),
	}))
	assert.Contains(t, stdout.String(), "Number of repositories: 6")
	assert.Contains(t, stdout.String(), "Number of components: 3")
	assert.Contains(t, stdout.String(), "Number of valid lines: 230")

	_, err = parseElements("files")
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
}

func TestRunObfuscate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "private/data.json", []byte(testDataset), 0o644))
	var stdout bytes.Buffer

	require.NoError(t, runObfuscate(obfuscateParams{
		source: "private/data.json",
		output: "obfuscated_data.json",
		fs:     fs,
		stdout: &stdout,
		logger: log.New(io.Discard),
	}))
	assert.Contains(t, stdout.String(), "obfuscated_data.json")

	got, err := afero.ReadFile(fs, "obfuscated_data.json")
	require.NoError(t, err)
	assert.Contains(t, string(got), "Component_003")
	assert.Contains(t, string(got), "Repository_006")
	assert.Contains(t, string(got), "System repos")
	assert.NotContains(t, string(got), `"c1"`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(false, &buf).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(true, &buf).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
