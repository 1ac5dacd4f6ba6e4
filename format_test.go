package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"negative", -1, "0 B"},
		{"bytes", 512, "512 B"},
		{"kibibytes", 1536, "1.5 KiB"},
		{"mebibytes", 5242880, "5.0 MiB"},
		{"gibibytes", 1610612736, "1.5 GiB"},
		{"tebibytes", 1099511627776, "1.0 TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.bytes))
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "2020")
	})

	t.Run("zero", func(t *testing.T) {
		assert.Equal(t, "-", formatTime(time.Time{}))
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"NAME", "SIZE"}, [][]string{
		{"book.epub", "1.2 MiB"},
		{"Author/", "-"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME       SIZE", lines[0])
	assert.Equal(t, "book.epub  1.2 MiB", lines[1])
	assert.Equal(t, "Author/    -", lines[2])
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printJSON(&buf, map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, buf.String())
}
