// SPDX-License-Identifier: BSD-3-Clause

package wireproto

import "errors"

var errBufTooLarge = errors.New("wireproto: encoded JSON document exceeds frame buffer size")
