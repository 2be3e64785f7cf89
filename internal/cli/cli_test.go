package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtags/internal/loader"
	"crowdtags/pkg/config"
	apperrors "crowdtags/pkg/errors"
)

const answersTable = "worker,answer\n" +
	"alice,`[{\"tag1\": [[\"w1\",\"w2\"]]}]`\n" +
	"bob,`[{\"tag1\": [[\"w3\"]]},{\"tag2\": [[\"w4\"]]}]`\n" +
	"carol,`[]`\n"

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	for _, key := range []string{config.EnvQuote, config.EnvDelimiter, config.EnvEmptyBatch, config.EnvOutputFormat, config.EnvIndexField, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
	}
	var stdout, stderr bytes.Buffer
	code := Execute(t.Context(), append([]string{"--env-file", ""}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFlatten_CSV(t *testing.T) {
	path := writeFile(t, "answers.csv", answersTable)

	res := run(t, "", "flatten", "--column", "answer", path)

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Equal(t, "worker,answer\n"+
		"alice,`{\"tag1\": [[\"w1\", \"w2\"]]}`\n"+
		"bob,`{\"tag1\": [[\"w3\"]]}`\n"+
		"bob,`{\"tag2\": [[\"w4\"]]}`\n"+
		"carol,\n", res.stdout)
	assert.Contains(t, res.stderr, "Table flattened")
	assert.Contains(t, res.stderr, "run_id=")
}

func TestFlatten_JSONLinesToFile(t *testing.T) {
	path := writeFile(t, "answers.csv", answersTable)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	res := run(t, "", "flatten", "-c", "answer", "--format", "jsonl", "--empty", "drop", "--index-field", "row", "-o", out, path)
	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"row":0,"worker":"alice","answer":"{\"tag1\": [[\"w1\", \"w2\"]]}"}`, lines[0])
	assert.True(t, strings.HasPrefix(lines[2], `{"row":1,"worker":"bob"`))
}

func TestFlatten_CSVIndexColumn(t *testing.T) {
	path := writeFile(t, "answers.csv", answersTable)

	res := run(t, "", "flatten", "-c", "answer", "--index-field", "row", path)

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	lines := strings.Split(res.stdout, "\n")
	assert.Equal(t, "row,worker,answer", lines[0])
	assert.Equal(t, "1,bob,`{\"tag2\": [[\"w4\"]]}`", lines[3])
}

func TestFlatten_CustomDialect(t *testing.T) {
	path := writeFile(t, "answers.tsv", "worker\tanswer\nalice\t\"[{\"\"a\"\": [[\"\"x\"\"]]}]\"\n")

	res := run(t, "", "flatten", "-c", "answer", "--quote", `"`, "--delimiter", "\t", path)

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Equal(t, "worker\tanswer\nalice\t\"{\"\"a\"\": [[\"\"x\"\"]]}\"\n", res.stdout)
}

func TestFlatten_Errors(t *testing.T) {
	malformed := writeFile(t, "bad.csv", "worker,answer\nalice,`[]`\nbob,`[{\"a\": `\n")
	wrongShape := writeFile(t, "shape.csv", "worker,answer\nalice,`{\"a\": []}`\n")
	good := writeFile(t, "good.csv", answersTable)

	tests := []struct {
		name   string
		args   []string
		code   int
		stderr []string
	}{
		{
			name:   "malformed JSON",
			args:   []string{"flatten", "-c", "answer", malformed},
			code:   apperrors.ExitDecode,
			stderr: []string{"DECODE_ERROR", "line: 3", "column: answer"},
		},
		{
			name:   "wrong shape",
			args:   []string{"flatten", "-c", "answer", wrongShape},
			code:   apperrors.ExitType,
			stderr: []string{"TYPE_ERROR"},
		},
		{
			name:   "missing file",
			args:   []string{"flatten", "-c", "answer", filepath.Join(t.TempDir(), "nope.csv")},
			code:   apperrors.ExitDecode,
			stderr: []string{"cannot open table"},
		},
		{
			name:   "unknown column",
			args:   []string{"flatten", "-c", "answers", good},
			code:   apperrors.ExitInvalidInput,
			stderr: []string{`column "answers" not found`},
		},
		{
			name:   "column flag missing",
			args:   []string{"flatten", good},
			code:   apperrors.ExitInvalidInput,
			stderr: []string{"column"},
		},
		{
			name:   "invalid format",
			args:   []string{"flatten", "-c", "answer", "--format", "xml", good},
			code:   apperrors.ExitInvalidInput,
			stderr: []string{"OutputFormat"},
		},
		{
			name:   "quote equals delimiter",
			args:   []string{"flatten", "-c", "answer", "--delimiter", "`", good},
			code:   apperrors.ExitInvalidInput,
			stderr: []string{"must differ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "", tt.args...)

			assert.Equal(t, tt.code, res.code, res.stderr)
			assert.Empty(t, res.stdout)
			for _, want := range tt.stderr {
				assert.Contains(t, res.stderr, want)
			}
		})
	}
}

func TestFlatten_EnvironmentConfiguration(t *testing.T) {
	path := writeFile(t, "answers.csv", answersTable)
	envFile := writeFile(t, "crowdtags.env", config.EnvEmptyBatch+"=drop\n")

	var stdout, stderr bytes.Buffer
	for _, key := range []string{config.EnvQuote, config.EnvDelimiter, config.EnvEmptyBatch, config.EnvOutputFormat, config.EnvIndexField, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
	}
	// The env file only fills variables that are not set at all.
	require.NoError(t, os.Unsetenv(config.EnvEmptyBatch))
	code := Execute(t.Context(), []string{"--env-file", envFile, "flatten", "-c", "answer", path}, strings.NewReader(""), &stdout, &stderr)

	require.Equal(t, apperrors.ExitOK, code, stderr.String())
	assert.NotContains(t, stdout.String(), "carol")
}

func TestKey(t *testing.T) {
	res := run(t, "", "key", `[{"b": [["z"]], "a": [["y"], ["x"]]}, {}]`)

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Equal(t, "{\"a\": [[\"x\"], [\"y\"]], \"b\": [[\"z\"]]}\n{}\n", res.stdout)
}

func TestKey_Stdin(t *testing.T) {
	res := run(t, `[{"t": [["w"]]}]`+"\n", "key")

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Equal(t, "{\"t\": [[\"w\"]]}\n", res.stdout)
}

func TestKey_EmptyBatch(t *testing.T) {
	res := run(t, "", "key", "[]")

	require.Equal(t, apperrors.ExitOK, res.code, res.stderr)
	assert.Empty(t, res.stdout)
}

func TestKey_Errors(t *testing.T) {
	res := run(t, "", "key", `[{"a": `)
	assert.Equal(t, apperrors.ExitDecode, res.code)

	res = run(t, "", "key", `{"a": []}`)
	assert.Equal(t, apperrors.ExitType, res.code)
	assert.Contains(t, res.stderr, "expected a list of actions")
}

func TestKey_Check(t *testing.T) {
	input := "{\"a\": [[\"x\"], [\"y\"]]}\n\n{\"a\": [[\"y\"], [\"x\"]]}\n"

	res := run(t, input, "key", "--check")

	assert.Equal(t, apperrors.ExitInvalidInput, res.code)
	assert.Equal(t, "line 3: not canonical, expected {\"a\": [[\"x\"], [\"y\"]]}\n", res.stdout)
	assert.Contains(t, res.stderr, "1 of 2 keys are not canonical")

	res = run(t, "{\"a\": []}\n{}\n", "key", "--check")
	assert.Equal(t, apperrors.ExitOK, res.code, res.stderr)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestKey_CheckWriteFailure(t *testing.T) {
	for _, key := range []string{config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
	}
	var stderr bytes.Buffer
	input := "{\"a\": [[\"y\"], [\"x\"]]}\n"

	code := Execute(t.Context(), []string{"--env-file", "", "key", "--check"}, strings.NewReader(input), failingWriter{}, &stderr)

	assert.Equal(t, apperrors.ExitInternal, code)
	assert.Contains(t, stderr.String(), "write check result")
}

func TestLoaderOptions(t *testing.T) {
	cfg := &config.Config{Quote: `"`, Delimiter: "\t", EmptyBatch: "drop"}

	assert.Equal(t, loader.Options{
		Quote:      '"',
		Delimiter:  '\t',
		EmptyBatch: loader.EmptyBatchDrop,
	}, loaderOptions(cfg))

	defaults := &config.Config{
		Quote:      config.DefaultQuote,
		Delimiter:  config.DefaultDelimiter,
		EmptyBatch: config.DefaultEmptyBatch,
	}
	assert.Equal(t, loader.DefaultOptions(), loaderOptions(defaults))
}
