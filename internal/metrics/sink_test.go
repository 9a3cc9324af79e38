package metrics

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       string
	}{
		{"success 200", 200, nil, StatusClass2xx},
		{"success 204", 204, nil, StatusClass2xx},
		{"client error 404", 404, nil, StatusClass4xx},
		{"server error 500", 500, nil, StatusClass5xx},
		{"server error 503", 503, nil, StatusClass5xx},
		{"redirect 302", 302, nil, StatusClassOtherError},
		{"timeout error", 0, errors.New("context deadline exceeded"), StatusClassTimeout},
		{"timeout keyword", 0, errors.New("request timeout"), StatusClassTimeout},
		{"connection refused", 0, errors.New("dial tcp: connection refused"), StatusClassConnectionError},
		{"no such host", 0, errors.New("lookup hooks.example.com: no such host"), StatusClassConnectionError},
		{"other error", 0, errors.New("something odd"), StatusClassOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.statusCode, tt.err); got != tt.want {
				t.Errorf("ClassifyStatus(%d, %v) = %q, want %q", tt.statusCode, tt.err, got, tt.want)
			}
		})
	}
}
