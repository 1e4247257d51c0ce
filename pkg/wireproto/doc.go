// SPDX-License-Identifier: BSD-3-Clause

// Package wireproto is the codec half of the on-host agent protocol; see
// internal/netagent for the UDP transport half. A Frame round-trips through
// Encode/Decode as exactly FrameLen bytes, matching the fixed-size datagram
// the on-host agent expects on every physical network.
package wireproto
