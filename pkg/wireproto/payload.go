// SPDX-License-Identifier: BSD-3-Clause

package wireproto

import "encoding/json"

// MtcAlivePayload is the JSON document carried in an mtcAlive frame's Buf
// when Revision signals JSON-in-buf (§6: "hostname, IPs, cluster-host IP,
// personality, etc.").
type MtcAlivePayload struct {
	Hostname      string `json:"hostname"`
	ClusterHostIP string `json:"cluster_host_ip,omitempty"`
	Personality   string `json:"personality"`
	Uptime        uint32 `json:"uptime"`
	Health        uint32 `json:"health"`
	Flags         uint32 `json:"flags"`
}

// HostServicesResultPayload is carried in a CmdHostServicesResult frame's
// Buf, the RESULT half of the host-services ACK/RESULT sub-protocol.
type HostServicesResultPayload struct {
	Hostname string `json:"hostname"`
	Status   uint32 `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// CommandRequestPayload is carried in the Buf of any side-effecting command
// request (§4.2: "commands with side effects carry a sender-address and
// interface label in the payload").
type CommandRequestPayload struct {
	SenderAddress string `json:"sender_address"`
	Interface     string `json:"interface"`
}

// DecodeMtcAlive unmarshals f.Buf as an MtcAlivePayload. Callers must check
// f.IsJSON() first.
func DecodeMtcAlive(f Frame) (MtcAlivePayload, error) {
	var p MtcAlivePayload
	err := json.Unmarshal(f.Buf, &p)
	return p, err
}

// DecodeHostServicesResult unmarshals f.Buf as a HostServicesResultPayload.
func DecodeHostServicesResult(f Frame) (HostServicesResultPayload, error) {
	var p HostServicesResultPayload
	err := json.Unmarshal(f.Buf, &p)
	return p, err
}

// EncodeJSON marshals v and returns it as a frame Buf, erroring if it would
// exceed BufLen.
func EncodeJSON(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(buf) > BufLen {
		return nil, errBufTooLarge
	}
	return buf, nil
}
