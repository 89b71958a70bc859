package registration

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExtractStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: 0},
		{name: "no code", err: errors.New("connection refused"), want: 0},
		{name: "conflict", err: errors.New("request failed, status: 409"), want: 409},
		{name: "server error", err: errors.New("status: 500, internal"), want: 500},
		{name: "no space after colon", err: errors.New("status:404"), want: 404},
		{name: "wrapped", err: errors.Wrap(errors.New("status: 409"), "upserting registration"), want: 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractStatusCode(tt.err))
		})
	}
}
