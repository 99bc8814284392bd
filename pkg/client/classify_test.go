package client

import (
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	cfg := DefaultConfig("https://example.com", "token")

	tests := []struct {
		name string
		resp Response
		want Class
	}{
		{
			name: "created 201",
			resp: Response{StatusCode: http.StatusCreated, Body: []byte(`{"Item":{"ObjectID":"x"}}`)},
			want: ClassCreated,
		},
		{
			name: "created 204",
			resp: Response{StatusCode: http.StatusNoContent},
			want: ClassCreated,
		},
		{
			name: "conflict 409",
			resp: Response{StatusCode: http.StatusConflict, Body: []byte(`{"Message":"duplicate"}`)},
			want: ClassConflict,
		},
		{
			name: "bare 200 means already exists",
			resp: Response{StatusCode: http.StatusOK, Body: []byte(`{}`)},
			want: ClassConflict,
		},
		{
			name: "transient signature",
			resp: Response{StatusCode: http.StatusInternalServerError, Body: []byte(`Connection Timeout Expired. The timeout period elapsed`)},
			want: ClassTransient,
		},
		{
			name: "500 without marker is hard failure",
			resp: Response{StatusCode: http.StatusInternalServerError, Body: []byte(`something broke`)},
			want: ClassHardFailure,
		},
		{
			name: "transport failure is transient",
			resp: Response{StatusCode: 0, Body: []byte(`dial tcp: connection refused`)},
			want: ClassTransient,
		},
		{
			name: "bad request is hard failure",
			resp: Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"Message":"bad"}`)},
			want: ClassHardFailure,
		},
		{
			name: "unauthorized is hard failure",
			resp: Response{StatusCode: http.StatusUnauthorized},
			want: ClassHardFailure,
		},
		{
			name: "marker on other status is not transient",
			resp: Response{StatusCode: http.StatusBadGateway, Body: []byte(`Connection Timeout Expired.`)},
			want: ClassHardFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Classify(tt.resp); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassCreated, "created"},
		{ClassConflict, "conflict"},
		{ClassTransient, "transient"},
		{ClassHardFailure, "hard_failure"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
