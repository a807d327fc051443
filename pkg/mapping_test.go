package mapvis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapping(t *testing.T) {
	rec := useRecordingLogger(t)
	csv := "\ufeffpm:channel, Row ,COL\n" +
		"PMA0:ch1,0,0\n" +
		"A0:CH02,0,1.5\n" +
		"A0:CH03,x,1\n" +
		",2,2\n" +
		"A0:CH01,3,3\n"

	m, err := ParseMapping("fta", "inline", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, m.ChannelCount())
	pos, ok := m.Position("A0:CH01")
	require.True(t, ok)
	assert.Equal(t, Position{Row: 3, Col: 3}, pos)
	pos, _ = m.Position("A0:CH02")
	assert.Equal(t, Position{Row: 0, Col: 1.5}, pos)
	assert.True(t, rec.warned("invalid position for A0:CH03"))
	assert.True(t, rec.warned("duplicate entry for A0:CH01"))
}

func TestParseMappingBadHeader(t *testing.T) {
	_, err := ParseMapping("x", "inline", strings.NewReader("channel,x,y\nA0:CH01,0,0\n"))
	var parseErr *ErrParseMapping
	require.ErrorAs(t, err, &parseErr)

	_, err = ParseMapping("x", "inline", strings.NewReader(""))
	require.ErrorAs(t, err, &parseErr)
}

func TestEmbeddedMappings(t *testing.T) {
	registry, err := NewRegistry(EmbeddedSource{})
	require.NoError(t, err)

	assert.Equal(t, []string{"fta", "ftc"}, registry.Names())
	infos := registry.Available()
	require.Len(t, infos, 2)
	assert.Equal(t, 96, infos[0].ChannelCount)
	assert.Equal(t, 112, infos[1].ChannelCount)

	fta, err := registry.Get("FTA")
	require.NoError(t, err)
	minRow, maxRow, minCol, maxCol := fta.Bounds()
	assert.Equal(t, []float64{0, 9, 0, 9}, []float64{minRow, maxRow, minCol, maxCol})

	// every position is used once
	seen := make(map[Position]string)
	for _, key := range fta.Keys() {
		pos := fta.Entries[key]
		assert.NotContains(t, seen, pos, "%s shares a cell with %s", key, seen[pos])
		seen[pos] = key
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry, err := NewRegistry(EmbeddedSource{})
	require.NoError(t, err)

	_, err = registry.Get("ftx")
	var notFound *ErrMappingNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"fta", "ftc"}, notFound.Available)
}

func TestDirectorySourceRefresh(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("fta.csv", "PM:Channel,row,col\nA0:CH01,0,0\n")
	write("notes.txt", "ignored")

	registry, err := NewRegistry(DirectorySource{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"fta"}, registry.Names())
	assert.Equal(t, filepath.Join(dir, "fta.csv"), registry.Available()[0].Source)

	write("ftc.csv", "PM:Channel,row,col\nC0:CH01,0,0\nC0:CH02,0,1\n")
	require.NoError(t, registry.Refresh())
	assert.Equal(t, []string{"fta", "ftc"}, registry.Names())
}

func TestDirectorySourceMissingDir(t *testing.T) {
	rec := useRecordingLogger(t)
	registry, err := NewRegistry(DirectorySource{Dir: filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)
	assert.Empty(t, registry.Names())
	assert.True(t, rec.warned("No mapping files"))
}

func TestLoadMappingFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "custom.csv")
	require.NoError(t, os.WriteFile(filename, []byte("PM:Channel,row,col\nB1:CH05,2,3\n"), 0o644))

	m, err := LoadMappingFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "custom", m.Name)
	assert.Equal(t, []string{"B1:CH05"}, m.Keys())
}
