// SPDX-License-Identifier: BSD-3-Clause

package mtcerr

// RESTResponse is the {status, reason, action} triple returned to an inbound
// REST caller for a rejected host-edit request (e.g. a duplicate-IP
// rejection).
type RESTResponse struct {
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	Action     string `json:"action"`
	HTTPStatus int    `json:"-"`
}

var restTable = map[Kind]RESTResponse{
	DupHostname: {
		Status:     "fail",
		Reason:     "Rejecting host-edit with duplicate hostname",
		Action:     "Delete host with that hostname first, or choose a different hostname",
		HTTPStatus: 400,
	},
	DupIPAddr: {
		Status:     "fail",
		Reason:     "Rejecting host-edit with duplicate ip address",
		Action:     "Delete host with ip address in use first, or choose a different ip address",
		HTTPStatus: 400,
	},
	DupUUID: {
		Status:     "fail",
		Reason:     "Rejecting host-edit with duplicate uuid",
		Action:     "Delete host with that uuid first, or correct the uuid",
		HTTPStatus: 400,
	},
	DupMACAddr: {
		Status:     "fail",
		Reason:     "Rejecting host-edit with duplicate mac address",
		Action:     "Delete host with that mac address first, or correct the mac address",
		HTTPStatus: 400,
	},
	ReservedName: {
		Status:     "fail",
		Reason:     "Can only add reserved hostname with matching personality",
		Action:     "Set personality to match the reserved hostname, or choose a different hostname",
		HTTPStatus: 400,
	},
	NodeType: {
		Status:     "fail",
		Reason:     "Invalid personality for this hostname",
		Action:     "Correct the personality field and resubmit",
		HTTPStatus: 400,
	},
	DelUnlocked: {
		Status:     "fail",
		Reason:     "Host must be locked before it can be deleted",
		Action:     "Lock the host and retry the delete",
		HTTPStatus: 400,
	},
	UnitActive: {
		Status:     "fail",
		Reason:     "Controlled host degrade not supported",
		Action:     "Use the failed severity to force a host failure instead",
		HTTPStatus: 405,
	},
	SwactNoInsvmate: {
		Status:     "fail",
		Reason:     "Cannot lock active controller without an in-service standby",
		Action:     "Ensure the mate controller is enabled and in service before locking",
		HTTPStatus: 400,
	},
	NeedStorageMon: {
		Status:     "fail",
		Reason:     "Cannot lock storage host; storage redundancy would be lost",
		Action:     "Restore storage redundancy before locking this host",
		HTTPStatus: 400,
	},
	OperInProgress: {
		Status:     "fail",
		Reason:     "An administrative action is already in progress for this host",
		Action:     "Wait for the in-progress action to complete and retry",
		HTTPStatus: 409,
	},
	SwactInProgress: {
		Status:     "fail",
		Reason:     "A controller switch-activate is already in progress",
		Action:     "Wait for the switch-activate to complete and retry",
		HTTPStatus: 409,
	},
	AdminAction: {
		Status:     "fail",
		Reason:     "Requested administrative action is not valid for the current host state",
		Action:     "Check the host's current admin/oper/avail state before retrying",
		HTTPStatus: 400,
	},
	ResetPoweroff: {
		Status:     "fail",
		Reason:     "Cannot reset a host that is powered off",
		Action:     "Power on the host before requesting a reset",
		HTTPStatus: 400,
	},
	NoIPSupport: {
		Status:     "fail",
		Reason:     "This network is not provisioned for this host",
		Action:     "Provision the required network before retrying",
		HTTPStatus: 400,
	},
	BadParm: {
		Status:     "fail",
		Reason:     "Invalid request parameters",
		Action:     "Correct the request body and resubmit",
		HTTPStatus: 400,
	},
	JSONParse: {
		Status:     "fail",
		Reason:     "Malformed request body",
		Action:     "Correct the request body and resubmit",
		HTTPStatus: 400,
	},
	UnknownHostname: {
		Status:     "fail",
		Reason:     "No host exists with the given identifier",
		Action:     "Verify the uuid or hostname and retry",
		HTTPStatus: 404,
	},
}

// defaultResponse is returned for kinds with no entry in restTable — an
// internal error that should never have reached the REST boundary.
var defaultResponse = RESTResponse{
	Status:     "fail",
	Reason:     "Internal error processing request",
	Action:     "Contact the system administrator",
	HTTPStatus: 500,
}

// REST maps a Kind to the REST error triple and HTTP status the external
// interface (§6) requires. OK is not a valid input and returns the zero
// RESTResponse.
func REST(k Kind) RESTResponse {
	if k == OK {
		return RESTResponse{}
	}
	if resp, ok := restTable[k]; ok {
		return resp
	}
	return defaultResponse
}
