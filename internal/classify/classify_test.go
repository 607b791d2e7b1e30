package classify

import (
	"strings"
	"testing"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.ContentType
	}{
		{"plain prose", "hello there", models.ContentTypeText},
		{"empty", "", models.ContentTypeText},
		{"whitespace only", "   \t\n", models.ContentTypeText},
		{"lone https url", "https://example.com/x", models.ContentTypeLink},
		{"lone short url", "https://a.io", models.ContentTypeLink},
		{"lone url padded", "  https://a.io  ", models.ContentTypeLink},
		{"bare domain", "example.com/path", models.ContentTypeLink},
		{"url with trailing prose", "https://a.io check this out", models.ContentTypeText},
		{"url with leading prose", "see https://a.io", models.ContentTypeText},
		{"two urls", "https://a.io https://b.io", models.ContentTypeText},
		{"almost a url", "https://", models.ContentTypeText},
		{"garbage", "ht!tp:/\\broken", models.ContentTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Classification never panics and always yields one of the two types,
	// whatever the input looks like.
	inputs := []string{
		"\x00\x01\x02",
		strings.Repeat("a", 100000),
		"://:://::",
		"🙂 https://a.io 🙂",
		"\xff\xfe invalid utf8",
	}
	for _, in := range inputs {
		got := Classify(in)
		assert.Contains(t, []models.ContentType{models.ContentTypeText, models.ContentTypeLink}, got)
	}
}
