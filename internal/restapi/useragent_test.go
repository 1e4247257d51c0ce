// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCaller(t *testing.T) {
	cases := []struct {
		ua   string
		want caller
		ok   bool
	}{
		{"sysinv/1.0", callerSysinv, true},
		{"vim/1.0", callerVIM, true},
		{"sm/1.0", callerSM, true},
		{"curl/8.0", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if c.ua != "" {
			req.Header.Set("User-Agent", c.ua)
		}
		got, ok := classifyCaller(req)
		require.Equal(t, c.ok, ok, c.ua)
		if c.ok {
			require.Equal(t, c.want, got, c.ua)
		}
	}
}
