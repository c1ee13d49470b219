package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/diagfmt"
)

const bookJava = `package com.x;

import org.babyfish.jimmer.sql.*;

@Entity
public interface Book {

    @Id
    long id();

    String name();
}
`

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		_ = checkCmd.Flags().Set("fix", "false")
		_ = rootCmd.PersistentFlags().Set("quiet", "false")
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheckReportsUnresolvedProp(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t, map[string]string{
		"build.gradle":                  "",
		"src/main/java/com/x/Book.java": bookJava,
		"src/main/dto/com/x/Book.dto":   "export com.x.Book\n\nBookView {\n    name\n    missingProp\n}\n",
		"src/main/dto/com/x/Ok.dto":     "export com.x.Book\n\nOkView {\n    id\n    name\n}\n",
	})

	out, _, err := runRoot(t, "check", "--format", "json", "--quiet", "--log-level", "error", filepath.Join(root, "src"))
	require.Error(t, err)
	assert.True(t, isSilent(err))

	var res diagfmt.DiagnosticsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Equal(t, 1, res.Count, out)
	d := res.Diagnostics[0]
	assert.Equal(t, "DTO3002", d.Code)
	assert.Equal(t, uint32(5), d.Location.StartLine)
	assert.Equal(t, uint32(5), d.Location.StartCol)
}

func TestCheckFixRewritesTypo(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t, map[string]string{
		"build.gradle":                  "",
		"src/main/java/com/x/Book.java": bookJava,
		"src/main/dto/com/x/Book.dto":   "export com.x.Book\n\nBookView {\n    nmae\n}\n",
	})

	_, stderr, err := runRoot(t, "check", "--fix", "--format", "json", "--log-level", "error", filepath.Join(root, "src"))
	require.Error(t, err)
	assert.Contains(t, stderr, `fixed DTO3002:Book.dto:4:5#0: Replace with "name"`)

	got, err := os.ReadFile(filepath.Join(root, "src/main/dto/com/x/Book.dto"))
	require.NoError(t, err)
	assert.Equal(t, "export com.x.Book\n\nBookView {\n    name\n}\n", string(got))
}
