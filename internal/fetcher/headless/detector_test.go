package headless

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

func TestDetector_ShouldPromote(t *testing.T) {
	t.Parallel()

	d := NewDetector(0)
	fullPage := strings.Repeat("<div>Open position: engineer</div>", 200)

	tests := []struct {
		name string
		resp aggregator.FetchResponse
		want bool
	}{
		{
			name: "empty 200 body",
			resp: aggregator.FetchResponse{StatusCode: 200},
			want: true,
		},
		{
			name: "tiny body",
			resp: aggregator.FetchResponse{StatusCode: 200, Body: []byte("<html></html>")},
			want: true,
		},
		{
			name: "react shell",
			resp: aggregator.FetchResponse{StatusCode: 200, Body: []byte(`<html><body><div id="root"></div>` + fullPage + `</body></html>`)},
			want: true,
		},
		{
			name: "server rendered page",
			resp: aggregator.FetchResponse{StatusCode: 200, Body: []byte("<html><body>" + fullPage + "</body></html>")},
			want: false,
		},
		{
			name: "error status never promotes",
			resp: aggregator.FetchResponse{StatusCode: 500},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, d.ShouldPromote(tt.resp))
		})
	}
}
