package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptParamsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  ScriptParams
		wantErr bool
	}{
		{"valid", ScriptParams{Title: "How tides work", DurationMinutes: 12}, false},
		{"blank title", ScriptParams{Title: "  ", DurationMinutes: 12}, true},
		{"zero duration", ScriptParams{Title: "Tides"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestThumbnailParamsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ThumbnailParams{Prompt: "a lighthouse at dusk"}.Validate())
	assert.ErrorIs(t, ThumbnailParams{}.Validate(), ErrInvalidParams)
}
