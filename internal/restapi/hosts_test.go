// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil)
	return NewServer(nil, reg, nil, nil), reg
}

func addNode(t *testing.T, reg *registry.Registry, hostname string) *registry.Node {
	t.Helper()
	h, kind := reg.Add(registry.AddInput{
		Hostname:     hostname,
		UUID:         hostname + "-uuid",
		ManagementIP: "10.0.0.5",
		MAC:          "aa:bb:cc:dd:ee:01",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)
	return node
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, userAgent string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAddHostCreatesNode(t *testing.T) {
	s, reg := newTestServer(t)
	router := s.Router()

	rr := doRequest(t, router, http.MethodPost, "/v1/hosts", addHostRequest{
		Hostname:     "worker-5",
		UUID:         "uuid-5",
		ManagementIP: "10.0.0.50",
		MAC:          "aa:bb:cc:dd:ee:50",
		Personality:  "worker",
	}, "sysinv/1.0")

	require.Equal(t, http.StatusCreated, rr.Code)
	node, err := reg.GetByUUID("uuid-5")
	require.NoError(t, err)
	require.Equal(t, "worker-5", node.Hostname)
}

func TestAddHostRejectsDuplicateUUID(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()
	req := addHostRequest{Hostname: "worker-6", UUID: "uuid-6", Personality: "worker"}

	rr := doRequest(t, router, http.MethodPost, "/v1/hosts", req, "sysinv/1.0")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/v1/hosts", req, "sysinv/1.0")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPatchHostRejectsUnrecognizedUserAgent(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-7")
	router := s.Router()

	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{}, "curl/8.0")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPatchHostAdminActionQueuesStage(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-8")
	node.AdminState = registry.AdminUnlocked
	node.OperState = registry.OperEnabled
	node.AvailStatus = registry.AvailAvailable
	router := s.Router()

	action := "lock"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{Action: &action}, "sysinv/1.0")

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, registry.ActionLock, node.AdminAction)
	require.Equal(t, registry.StageDisable, node.Stage)
}

func TestPatchHostSeverityFailedForcesDisable(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-9")
	router := s.Router()

	severity := "failed"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{Severity: &severity}, "vim/1.0")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, registry.StageDisable, node.Stage)
}

func TestPatchHostSeverityDegradedRejected(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-10")
	router := s.Router()

	severity := "degraded"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{Severity: &severity}, "vim/1.0")

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPatchHostSeverityRejectsNonVIMCaller(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-11")
	router := s.Router()

	severity := "failed"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{Severity: &severity}, "sysinv/1.0")

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPatchHostInventoryModifiesExistingNode(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-16")
	router := s.Router()

	newIP := "10.0.0.60"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/"+node.UUID, patchHostRequest{ManagementIP: &newIP}, "sysinv/1.0")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "10.0.0.60", node.ManagementIP)
}

func TestPatchHostInventoryPromotesUnknownUUIDToAdd(t *testing.T) {
	s, reg := newTestServer(t)
	router := s.Router()

	hostname := "worker-17"
	personality := "worker"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/uuid-17", patchHostRequest{
		Hostname:    &hostname,
		Personality: &personality,
	}, "sysinv/1.0")

	require.Equal(t, http.StatusOK, rr.Code)
	node, err := reg.GetByUUID("uuid-17")
	require.NoError(t, err)
	require.Equal(t, "worker-17", node.Hostname)
}

func TestPatchHostInventoryPromotionRejectsUnknownActionTarget(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	action := "lock"
	rr := doRequest(t, router, http.MethodPatch, "/v1/hosts/uuid-missing", patchHostRequest{Action: &action}, "sysinv/1.0")

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteHostRejectsUnlockedNode(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-12")
	node.AdminState = registry.AdminUnlocked
	router := s.Router()

	rr := doRequest(t, router, http.MethodDelete, "/v1/hosts/"+node.UUID, nil, "sysinv/1.0")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteHostQueuesDelStage(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-13")
	node.AdminState = registry.AdminLocked
	router := s.Router()

	rr := doRequest(t, router, http.MethodDelete, "/v1/hosts/"+node.UUID, nil, "sysinv/1.0")
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, registry.StageDel, node.Stage)
}

func TestGetHostRequiresVIMCaller(t *testing.T) {
	s, reg := newTestServer(t)
	node := addNode(t, reg, "worker-14")
	router := s.Router()

	rr := doRequest(t, router, http.MethodGet, "/v1/hosts/"+node.UUID, nil, "sysinv/1.0")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/v1/hosts/"+node.UUID, nil, "vim/1.0")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "locked-disabled-offline", body["state"])
}

func TestGetSystemsCountsPersonalities(t *testing.T) {
	s, reg := newTestServer(t)
	addNode(t, reg, "worker-15")
	router := s.Router()

	rr := doRequest(t, router, http.MethodGet, "/v1/systems", nil, "vim/1.0")
	require.Equal(t, http.StatusOK, rr.Code)

	var info systemInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Equal(t, 1, info.HostCount)
	require.Equal(t, 1, info.WorkerCount)
}
