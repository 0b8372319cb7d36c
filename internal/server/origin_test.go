package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		want    []string
	}{
		{name: "hosts", origins: []string{"http://localhost:5173", "https://board.example.com"}, want: []string{"localhost:5173", "board.example.com"}},
		{name: "wildcard", origins: []string{"https://a.example.com", "*"}, want: []string{"*"}},
		{name: "invalid skipped", origins: []string{"not a url", "https://b.example.com"}, want: []string{"b.example.com"}},
		{name: "empty", origins: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, originPatterns(tt.origins))
		})
	}
}
