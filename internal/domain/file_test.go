package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizeLabel(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0.00 KB"},
		{512, "0.50 KB"},
		{2048, "2.00 KB"},
		{1536000, "1500.00 KB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeLabel(tt.size))
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "report.pdf", DisplayName("uploads/u1/report.pdf"))
	assert.Equal(t, "report.pdf", DisplayName("report.pdf"))
	assert.Equal(t, "", DisplayName("uploads/u1/"))
	assert.Equal(t, "", DisplayName(""))
}

func TestNewFileRecord(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	rec := NewFileRecord("uploads/u1/report.pdf", 2048, ts, "https://signed")

	assert.Equal(t, "uploads/u1/report.pdf", rec.Key)
	assert.Equal(t, "report.pdf", rec.Name)
	assert.Equal(t, "2.00 KB", rec.SizeLabel)
	assert.Equal(t, "https://signed", rec.URL)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, rec.CreatedAt.Equal(ts))
	assert.False(t, rec.Selected)
}
