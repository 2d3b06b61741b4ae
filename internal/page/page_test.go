package page

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const sample = `<html><head></head><body><template id="lastfm">{ track.title }</template></body></html>`

func TestLoad_DefaultsOutputToSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	f, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, f.Source())
	assert.Equal(t, path, f.Output())
	assert.NotNil(t, f.Document())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("", "")
	assert.ErrorIs(t, err, ErrNoPath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.html"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSave_WritesRenderedDocument(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.html")
	out := filepath.Join(dir, "public", "index.html")
	require.NoError(t, os.WriteFile(src, []byte(sample), 0644))

	f, err := Load(src, out)
	require.NoError(t, err)

	body := f.Document().LastChild.LastChild // html > body
	require.Equal(t, "body", body.Data)
	body.AppendChild(&html.Node{Type: html.TextNode, Data: "rendered"})

	require.NoError(t, f.Save())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rendered")
	assert.Contains(t, string(data), `<template id="lastfm">`)

	// Source untouched, no temp files left behind.
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, sample, string(orig))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_NoOutput(t *testing.T) {
	f, err := Parse([]byte(sample), "")
	require.NoError(t, err)
	assert.NoError(t, f.Save())
}
