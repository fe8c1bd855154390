package symtree //nolint:testpackage // tests require access to the edit log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		offset  int
		edits   []edit
		gravity Direction
		want    int
	}{
		{name: "no edits", offset: 5, want: 5, gravity: Forward},
		{name: "insert before", offset: 5, edits: []edit{{offset: 2, inserted: 3}}, gravity: Backward, want: 8},
		{name: "insert after", offset: 5, edits: []edit{{offset: 7, inserted: 3}}, gravity: Forward, want: 5},
		{name: "insert at, backward", offset: 5, edits: []edit{{offset: 5, inserted: 3}}, gravity: Backward, want: 5},
		{name: "insert at, forward", offset: 5, edits: []edit{{offset: 5, inserted: 3}}, gravity: Forward, want: 8},
		{name: "delete before", offset: 5, edits: []edit{{offset: 0, removed: 2}}, gravity: Forward, want: 3},
		{name: "delete around", offset: 5, edits: []edit{{offset: 3, removed: 4}}, gravity: Forward, want: 3},
		{name: "delete at", offset: 5, edits: []edit{{offset: 5, removed: 4}}, gravity: Forward, want: 5},
		{
			name:    "sequence",
			offset:  4,
			edits:   []edit{{offset: 3, removed: 3}, {offset: 0, inserted: 2}},
			gravity: Backward,
			want:    5,
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, transformOffset(tt.offset, tt.edits, tt.gravity), tt.name)
	}
}
