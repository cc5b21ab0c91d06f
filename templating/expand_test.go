package templating_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/tokenparser/templating"
)

// writeTemp creates a temporary file with content and
// returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func readOut(tb testing.TB, pa string) string {
	tb.Helper()

	got, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(tb, err)

	return string(got)
}

func TestExpand_variable_substitution_default_style(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()

	tplPath := writeTemp(t, dir, "tpl.txt", "Hello ${name}!")
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{}

	err := ex.Expand(
		tplPath, outPath, []string{"name=World"}, false,
	)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", readOut(t, outPath))
}

func TestExpand_custom_style(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	st, err := templating.NewStyle("<%", "%>")
	require.NoError(t, err)

	tplPath := writeTemp(t, dir, "tpl.txt", "Hello <%name%>!")
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{Style: st}

	err = ex.Expand(
		tplPath, outPath, []string{"name=World"}, false,
	)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", readOut(t, outPath))
}

func TestExpand_stamp_file_substitution(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	stampPath := writeTemp(
		t, dir, "stamp.txt",
		"BUILD_USER alice\nBUILD_HOST ci-01\n",
	)

	tplPath := writeTemp(
		t, dir, "tpl.txt",
		"Built by [BUILD_USER] on [BUILD_HOST]",
	)

	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{
		Style:          templating.SquareBraces(),
		StampInfoFiles: []string{stampPath},
	}

	err := ex.Expand(tplPath, outPath, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Built by alice on ci-01", readOut(t, outPath))
}

func TestExpand_property_files_and_variables_layering(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()

	stampPath := writeTemp(t, dir, "stamp.txt", "VERSION 1.0.0\n")
	propPath := writeTemp(
		t, dir, "props.yaml",
		"VERSION: 1.5.0\napp:\n  name: billing\n",
	)

	tplPath := writeTemp(
		t, dir, "tpl.txt",
		"${app.name}=${VERSION} by ${AUTHOR} (${variables.AUTHOR})",
	)

	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{
		StampInfoFiles: []string{stampPath},
		PropertyFiles:  []string{propPath},
	}

	err := ex.Expand(
		tplPath, outPath,
		[]string{"AUTHOR={app.name}-team"},
		false,
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"billing=1.5.0 by billing-team (billing-team)",
		readOut(t, outPath),
	)
}

func TestExpand_variables_override_files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	propPath := writeTemp(t, dir, "props.json", `{"VERSION": "1.0.0"}`)
	tplPath := writeTemp(t, dir, "tpl.txt", "version=${VERSION}")
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{PropertyFiles: []string{propPath}}

	err := ex.Expand(
		tplPath, outPath, []string{"VERSION=2.0.0"}, false,
	)
	require.NoError(t, err)
	assert.Equal(t, "version=2.0.0", readOut(t, outPath))
}

func TestExpand_env_prefix(t *testing.T) {
	t.Setenv("TOKENPARSE_EXPAND_REGION", "eu-west-1")

	dir := t.TempDir()

	tplPath := writeTemp(t, dir, "tpl.txt", "region=${REGION}")
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{EnvPrefix: "TOKENPARSE_EXPAND_"}

	err := ex.Expand(tplPath, outPath, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "region=eu-west-1", readOut(t, outPath))
}

func TestExpand_unknown_tokens_preserved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tplPath := writeTemp(
		t, dir, "tpl.txt", "${known} and ${unknown}",
	)
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{}

	err := ex.Expand(
		tplPath, outPath, []string{"known=yes"}, false,
	)
	require.NoError(t, err)
	assert.Equal(t, "yes and ${unknown}", readOut(t, outPath))
}

func TestExpand_malformed_copied_unless_strict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tplPath := writeTemp(t, dir, "tpl.txt", "${a} ${b")
	outPath := filepath.Join(dir, "out.txt")

	lenient := templating.Expander{}

	err := lenient.Expand(
		tplPath, outPath, []string{"a=A", "b=B"}, false,
	)
	require.NoError(t, err)
	assert.Equal(t, "A ${b", readOut(t, outPath))

	strict := templating.Expander{Strict: true}

	err = strict.Expand(
		tplPath, filepath.Join(dir, "strict.txt"),
		[]string{"a=A"}, false,
	)
	require.ErrorIs(t, err, templating.ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "tpl.txt")
}

func TestExpand_executable_output(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tplPath := writeTemp(
		t, dir, "script.sh", "#!/bin/sh\necho ${msg}\n",
	)
	outPath := filepath.Join(dir, "out.sh")

	ex := templating.Expander{}

	err := ex.Expand(tplPath, outPath, []string{"msg=hi"}, true)
	require.NoError(t, err)

	info, err := os.Stat(outPath)
	require.NoError(t, err)

	// Owner executable bit must be set.
	assert.NotZero(t, info.Mode()&0o100)
	assert.Equal(t, "#!/bin/sh\necho hi\n", readOut(t, outPath))
}

func TestExpand_missing_template_file(t *testing.T) {
	t.Parallel()

	ex := templating.Expander{}

	err := ex.Expand("/nonexistent/template.txt", "", nil, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expanding template")
}

func TestExpand_missing_property_file(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(t, dir, "tpl.txt", "hi")

	ex := templating.Expander{
		PropertyFiles: []string{"/nonexistent/props.yaml"},
	}

	err := ex.Expand(tplPath, "", nil, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading properties")
}

func TestExpand_bad_variable_format(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(t, dir, "tpl.txt", "hi")

	ex := templating.Expander{}

	err := ex.Expand(tplPath, "", []string{"NOEQUALS"}, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NAME=VALUE")
}

func TestExpand_invalid_style(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(t, dir, "tpl.txt", "hi")

	ex := templating.Expander{
		Style: templating.StyleForTest("", "}"),
	}

	err := ex.Expand(tplPath, "", nil, false)

	require.ErrorIs(t, err, templating.ErrInvalidStyle)
}

func TestExpand_imports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	headerPath := writeTemp(t, dir, "header.txt", "# ${app} ${imports.footer}")
	footerPath := writeTemp(t, dir, "footer.txt", "end of ${app}")
	tplPath := writeTemp(
		t, dir, "tpl.txt",
		"${imports.header}\nbody\n${imports.footer}",
	)
	outPath := filepath.Join(dir, "out.txt")

	ex := templating.Expander{
		Imports: []string{
			"header=" + headerPath,
			"footer=" + footerPath,
		},
	}

	err := ex.Expand(tplPath, outPath, []string{"app=billing"}, false)
	require.NoError(t, err)
	assert.Equal(
		t,
		"# billing ${imports.footer}\nbody\nend of billing",
		readOut(t, outPath),
	)
}

func TestExpand_bad_imports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(t, dir, "tpl.txt", "hi")

	tests := []struct {
		name    string
		imports []string
		wantErr error
		wantMsg string
	}{
		{"no equals", []string{"header"}, templating.ErrBadImport, ""},
		{"empty name", []string{"=file.txt"}, templating.ErrBadImport, ""},
		{"missing file", []string{"h=/nonexistent/h.txt"}, nil, "loading imports"},
	}

	for _, tt := range tests {
		ex := templating.Expander{Imports: tt.imports}

		err := ex.Expand(tplPath, "", nil, false)
		require.Error(t, err, tt.name)

		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.name)
		}

		assert.Contains(t, err.Error(), tt.wantMsg, tt.name)
	}
}

func TestExpand_stdin_to_stdout(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	ex := templating.Expander{
		Stdin:  strings.NewReader("Hello ${name}, ${missing}"),
		Stdout: &out,
	}

	err := ex.Expand("", "", []string{"name=World"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Hello World, ${missing}", out.String())
}

func TestExpand_output_directory_missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(t, dir, "tpl.txt", "hi")

	ex := templating.Expander{}

	err := ex.Expand(
		tplPath, filepath.Join(dir, "nope", "out.txt"), nil, false,
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening output")
}

func TestLoadProperties_layers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	stampPath := writeTemp(t, dir, "stamp.txt", "A stamp\nB stamp\n")
	propPath := writeTemp(t, dir, "props.yaml", "B: file\nC: file\n")

	ex := templating.Expander{
		StampInfoFiles: []string{stampPath},
		PropertyFiles:  []string{propPath},
	}

	props, err := ex.LoadProperties([]string{"C=var"})
	require.NoError(t, err)

	assert.Equal(t, "stamp", props["A"])
	assert.Equal(t, "file", props["B"])
	assert.Equal(t, "var", props["C"])
	assert.Equal(t, "var", props["variables.C"])
}
