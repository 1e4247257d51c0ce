// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeKindError renders k through mtcerr.REST's {status, reason, action}
// triple — the fixed mapping §6/§7 require at the REST boundary.
func writeKindError(w http.ResponseWriter, k mtcerr.Kind) {
	resp := mtcerr.REST(k)
	writeJSON(w, resp.HTTPStatus, resp)
}
