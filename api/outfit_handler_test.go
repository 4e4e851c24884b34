package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lucelabs/luce-styling-api/gemini"
	"google.golang.org/api/googleapi"
)

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{
			"googleapi 429 inside a stage error",
			&gemini.StageError{Stage: gemini.StageEdit, Err: &googleapi.Error{Code: http.StatusTooManyRequests}},
			true,
		},
		{
			"googleapi 500",
			&gemini.StageError{Stage: gemini.StageEdit, Err: &googleapi.Error{Code: http.StatusInternalServerError}},
			false,
		},
		{
			"grpc resource exhausted",
			fmt.Errorf("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"),
			true,
		},
		{
			"quota message",
			fmt.Errorf("generativelanguage: Quota exceeded for requests per minute"),
			true,
		},
		{
			"unrelated failure",
			fmt.Errorf("connection reset by peer"),
			false,
		},
	}
	for _, c := range cases {
		if got := isQuotaError(c.err); got != c.want {
			t.Fatalf("%s: isQuotaError = %v, want %v", c.name, got, c.want)
		}
	}
}
