package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEqual(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		compared string
		equal    bool
	}{
		{"identical", "My_Pass_Sec", "My_Pass_Sec", true},
		{"different", "My_Pass_Sec", "My_Pass_Sec2", false},
		{"case_sensitive", "secret", "Secret", false},
		{"whitespace_significant", "secret", "secret ", false},
		{"empty_vs_empty", "", "", true},
		{"empty_vs_value", "", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBufferString(tt.stored)
			equal, err := buf.EqualString(tt.compared)
			require.NoError(t, err)
			assert.Equal(t, tt.equal, equal)
		})
	}
}

func TestBufferSurvivesRepeatedComparison(t *testing.T) {
	buf := NewBufferString("value")

	for i := 0; i < 3; i++ {
		equal, err := buf.EqualString("value")
		require.NoError(t, err)
		assert.True(t, equal)
	}
}
