package proctor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string", raw: `"data:image/png;base64,iVBOR"`, want: "data:image/png;base64,iVBOR"},
		{name: "escaped json string", raw: `"{\"hidden\":true}"`, want: `{"hidden":true}`},
		{name: "inline object", raw: ` {"hidden":true} `, want: `{"hidden":true}`},
		{name: "inline array", raw: `[{"t":1}]`, want: `[{"t":1}]`},
		{name: "null", raw: `null`, want: ""},
		{name: "absent", raw: ``, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payloadText(json.RawMessage(tt.raw)))
		})
	}
}
