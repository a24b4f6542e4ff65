package datalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ewh2grid/internal/config"
	"ewh2grid/pkg/cta2045"

	"github.com/stretchr/testify/assert"
)

func TestWriterAppend(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "der.log")
	writer, err := NewWriter(config.DatalogConfig{Path: path, IntervalMinutes: 1})
	assert.NoError(err)
	assert.True(writer.Enabled())

	writer.Append(Record{
		ExportWatts:       0,
		ExportPower:       0,
		ExportEnergy:      0,
		ImportWatts:       4500,
		ImportPower:       500,
		ImportEnergy:      3400,
		RatedImportEnergy: 12000,
		RealImportPower:   2400,
		DeviceState:       cta2045.StateCurtailed,
	})
	writer.Close()

	content, err := os.ReadFile(path)
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(lines, 1)

	fields := strings.Split(lines[0], "\t")
	// timestamp plus the nine record fields
	assert.Len(fields, 10)
	assert.Equal("0", fields[1])
	assert.Equal("4500", fields[4])
	assert.Equal("500", fields[5])
	assert.Equal("3400", fields[6])
	assert.Equal("12000", fields[7])
	assert.Equal("2400", fields[8])
	assert.Equal(cta2045.StateCurtailed.String(), fields[9])
}

func TestWriterDisabled(t *testing.T) {
	assert := assert.New(t)

	writer, err := NewWriter(config.DatalogConfig{})
	assert.NoError(err)
	assert.False(writer.Enabled())

	// no-op, must not panic
	writer.Append(Record{ImportWatts: 1})
	writer.Close()
}
