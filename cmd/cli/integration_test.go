package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/kanon/pkg/errors"
)

// Integration tests for CLI commands
// These tests run the actual CLI commands against files in a temp directory

const settingsJSON = `{
  "shop_categories": {
    "Продукты": {"chains_of_stores": {"Лента": {}, "Пятёрочка": {}}},
    "Электроника": {"chains_of_stores": {"М.Видео": {}}}
  },
  "bin_list_path": "bins.csv"
}`

const binCSV = "bin;brand;issuer\n220070;MIR;Sber\n427683;VISA;Sber\n"

const purchasesCSV = `shop_name,datetime,longitude,latitude,category,brand,card_number,quantity,price
Лента,2023-01-15 10:00,30.315,59.9388,food,Prostokvashino,2200701234567890,5,100
Лента,2023-02-10 11:00,30.316,59.9390,food,Danone,2200701234567891,10,150
М.Видео,2023-07-01 12:00,30.5,60.0,tv,Samsung,4276831234567890,1,50000
М.Видео,2023-07-21 13:00,30.5,60.0,tv,LG,4276831234567891,2,45000
Пятёрочка,2023-01-20 14:00,30.3149,59.938,food,Danone,9999991234567890,7,120
Unknown Shop,bad-date,abc,59.9,misc,X,1234,3,10
`

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(settingsJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bins.csv"), []byte(binCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "purchases.csv"), []byte(purchasesCSV), 0644))
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	rootCmd := createRootCommand()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIIntegrationColumns(t *testing.T) {
	dir := setupWorkspace(t)

	out, _, err := execute(t, "", "columns", "--input", filepath.Join(dir, "purchases.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "shop_name")
	assert.Contains(t, out, "card_number")
	assert.Contains(t, out, "9")
}

func TestCLIIntegrationAnonymize(t *testing.T) {
	dir := setupWorkspace(t)
	input := filepath.Join(dir, "purchases.csv")
	settings := filepath.Join(dir, "settings.json")

	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantErr  bool
		validate func(t *testing.T, stdout, output string, err error)
	}{
		{
			name: "Non-interactive run with suppression",
			args: []string{"-q", "shop_name,datetime,longitude", "-p", "50"},
			validate: func(t *testing.T, stdout, output string, err error) {
				assert.Contains(t, stdout, "quasi_identifier_k_anonymity")
				assert.Contains(t, stdout, "full_uniqueness")

				data, err := os.ReadFile(output)
				require.NoError(t, err)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				assert.Len(t, lines, 4)
				assert.Equal(t, "shop_name,datetime,distance_band,category,brand,card_number,quantity,price", lines[0])
			},
		},
		{
			name:  "Interactive selection retries on invalid input",
			stdin: "42\n1,2\n",
			validate: func(t *testing.T, stdout, output string, err error) {
				assert.Contains(t, stdout, "Please try again")
				_, statErr := os.Stat(output)
				assert.NoError(t, statErr)
			},
		},
		{
			name:    "Interactive selection without answer",
			stdin:   "",
			wantErr: true,
			validate: func(t *testing.T, stdout, output string, err error) {
				assert.True(t, stderrors.Is(err, errors.ErrEmptyQuasiIdentifiers))
			},
		},
		{
			name:    "Suppression percentage out of range",
			args:    []string{"-q", "1", "-p", "150"},
			wantErr: true,
			validate: func(t *testing.T, stdout, output string, err error) {
				assert.True(t, stderrors.Is(err, errors.ErrInvalidPercent))
				_, statErr := os.Stat(output)
				assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
			},
		},
		{
			name:    "Overlapping distance thresholds",
			args:    []string{"-q", "1", "--distance-thresholds", "5,5"},
			wantErr: true,
			validate: func(t *testing.T, stdout, output string, err error) {
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
			},
		},
		{
			name: "JSON report",
			args: []string{"-q", "1,2", "--format", "json"},
			validate: func(t *testing.T, stdout, output string, err error) {
				var result map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(stdout), &result))
				assert.NotEmpty(t, result["run_id"])
				assert.Contains(t, result, "quasi_identifier_k_anonymity")
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(dir, "out", strings.Repeat("x", i+1)+".csv")
			args := append([]string{"anonymize", "--input", input, "--settings", settings, "--output", output}, tt.args...)

			stdout, _, err := execute(t, tt.stdin, args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			tt.validate(t, stdout, output, err)
		})
	}
}

func TestCLIIntegrationConfigurationErrors(t *testing.T) {
	dir := setupWorkspace(t)

	_, _, err := execute(t, "", "anonymize", "--input", filepath.Join(dir, "missing.csv"),
		"--settings", filepath.Join(dir, "settings.json"), "-q", "1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInputNotFound))

	_, _, err = execute(t, "", "anonymize", "--input", filepath.Join(dir, "purchases.csv"),
		"--settings", filepath.Join(dir, "missing.json"), "-q", "1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestCLIIntegrationWorkflow(t *testing.T) {
	dir := setupWorkspace(t)
	output := filepath.Join(dir, "anonymized.csv")

	_, _, err := execute(t, "", "anonymize",
		"--input", filepath.Join(dir, "purchases.csv"),
		"--settings", filepath.Join(dir, "settings.json"),
		"--output", output,
		"-q", "shop_name,datetime,longitude")
	require.NoError(t, err)

	out, _, err := execute(t, "", "kanon", "--input", output, "-q", "shop_name,datetime,distance_band", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "quasi_identifier_k_anonymity")
	assert.Contains(t, out, "full_uniqueness")

	out, _, err = execute(t, "", "bad-groups", "--input", output, "-q", "1,2,3", "--threshold", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Smallest equivalence classes (2)")
	assert.Contains(t, out, "unknown category")
}
