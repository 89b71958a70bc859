package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/miradi/core"
)

func Test_orderBy(t *testing.T) {
	allowed := map[string]bool{"title": true, "created_at": true}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "No ordering falls back to default", want: " ORDER BY created_at ASC"},
		{
			name:     "Known fields pass through",
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at"}},
			want:     " ORDER BY title ASC, created_at DESC",
		},
		{
			name:     "Unknown field is dropped",
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "password_hash", Ascending: true}},
			want:     " ORDER BY title ASC",
		},
		{
			name:     "SQL expression is dropped, default applies",
			ordering: []core.DBOrdering{{Field: "CASE WHEN (SELECT 1)=1 THEN title END", Ascending: true}},
			want:     " ORDER BY created_at ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering, allowed, "created_at ASC"))
		})
	}

	t.Run("No default yields no clause", func(t *testing.T) {
		assert.Empty(t, orderBy(nil, allowed, ""))
	})
}
