// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"net/http"
	"strings"
)

// caller identifies which peer service issued an inbound request, as
// distinguished by the fixed User-Agent prefixes of §6.
type caller string

const (
	callerSysinv caller = "sysinv"
	callerVIM    caller = "vim"
	callerSM     caller = "sm"
)

const forbiddenCallerReason = "Unrecognized User-Agent; expected one of sysinv/1.0, vim/1.0, sm/1.0"

// classifyCaller maps a request's User-Agent header to the caller it
// identifies. The second return is false for anything outside the fixed
// set of §6.
func classifyCaller(r *http.Request) (caller, bool) {
	ua := r.Header.Get("User-Agent")
	switch {
	case strings.HasPrefix(ua, "sysinv/"):
		return callerSysinv, true
	case strings.HasPrefix(ua, "vim/"):
		return callerVIM, true
	case strings.HasPrefix(ua, "sm/"):
		return callerSM, true
	default:
		return "", false
	}
}

// requireCaller classifies the request and, if its caller isn't in allowed,
// writes the fixed 403 of §6 and reports false so the handler returns
// immediately.
func requireCaller(w http.ResponseWriter, r *http.Request, allowed ...caller) (caller, bool) {
	c, ok := classifyCaller(r)
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"reason": forbiddenCallerReason})
		return "", false
	}
	for _, a := range allowed {
		if a == c {
			return c, true
		}
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"reason": forbiddenCallerReason})
	return "", false
}
