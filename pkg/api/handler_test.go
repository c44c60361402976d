package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/model"
	"github.com/proofscan/proof-manager/pkg/proof"
)

func TestHandler_UpdateCluster(t *testing.T) {
	clusterService := &fakeClusterService{
		cluster:   &model.Cluster{ID: 42, TeamID: 9},
		versionID: 7,
	}
	handler := NewHandler(clusterService, nil)

	w := httptest.NewRecorder()
	c := newContext(w, &model.Team{ID: 9})
	c.Params = gin.Params{{Key: "index", Value: "2"}}
	c.Request = newJSONRequest(t, http.MethodPatch, "/v1/clusters/2", map[string]any{
		"name":     "renamed",
		"num_gpus": 4,
	})

	handler.UpdateCluster(c)

	require.Empty(t, c.Errors)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(9), clusterService.indexTeamID)
	assert.Equal(t, uint(2), clusterService.index)
	assert.Equal(t, uint(42), clusterService.updatedClusterID)
	assert.Equal(t, cluster.Actor{TeamID: 9}, clusterService.actor)
	require.NotNil(t, clusterService.patch.Nickname)
	assert.Equal(t, "renamed", *clusterService.patch.Nickname)
	require.NotNil(t, clusterService.patch.NumGpus)
	assert.Equal(t, uint(4), *clusterService.patch.NumGpus)
	assert.Nil(t, clusterService.patch.HardwareDescription, "absent fields must not enter the patch")
	assert.Nil(t, clusterService.patch.ZkvmVersionID)

	var response map[string]uint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, uint(42), response["cluster_id"])
	assert.Equal(t, uint(7), response["version_id"])
}

func TestHandler_UpdateCluster_WithoutTeam(t *testing.T) {
	handler := NewHandler(&fakeClusterService{}, nil)

	w := httptest.NewRecorder()
	c := newContext(w, nil)
	c.Params = gin.Params{{Key: "index", Value: "1"}}
	c.Request = newJSONRequest(t, http.MethodPatch, "/v1/clusters/1", map[string]any{"name": "x"})

	handler.UpdateCluster(c)

	require.Len(t, c.Errors, 1)
	require.ErrorContains(t, c.Errors[0].Err, "team not found")
}

func TestHandler_ProofQueued(t *testing.T) {
	proofService := &fakeProofService{
		proof: &model.Proof{BlockNumber: 23112400, ClusterID: 42, Status: model.ProofStatusQueued},
	}
	handler := NewHandler(nil, proofService)

	w := httptest.NewRecorder()
	c := newContext(w, &model.Team{ID: 9})
	c.Request = newJSONRequest(t, http.MethodPost, "/v1/proofs/queued", map[string]any{
		"block_number":  23112400,
		"cluster_index": 1,
		"block_hash":    "0xabc",
		"gas_used":      14500000,
	})

	handler.ProofQueued(c)

	require.Empty(t, c.Errors)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, uint(9), proofService.teamID)
	assert.Equal(t, uint(1), proofService.clusterIndex)
	assert.Equal(t, uint64(23112400), proofService.block.Number)
	assert.Equal(t, "0xabc", proofService.block.Hash)
	assert.Equal(t, "queued", proofService.status)
}

func TestHandler_ProofQueued_MissingBlockNumber(t *testing.T) {
	handler := NewHandler(nil, &fakeProofService{})

	w := httptest.NewRecorder()
	c := newContext(w, &model.Team{ID: 9})
	c.Request = newJSONRequest(t, http.MethodPost, "/v1/proofs/queued", map[string]any{
		"cluster_index": 1,
	})

	handler.ProofQueued(c)

	require.Len(t, c.Errors, 1)
	require.ErrorContains(t, c.Errors[0].Err, "Error binding data")
}

func newContext(w *httptest.ResponseRecorder, team *model.Team) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	if team != nil {
		c.Set("team", team)
	}
	return c
}

func newJSONRequest(t *testing.T, method string, target string, body map[string]any) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	request := httptest.NewRequest(method, target, bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	return request
}

type fakeClusterService struct {
	cluster   *model.Cluster
	versionID uint

	indexTeamID      uint
	index            uint
	updatedClusterID uint
	actor            cluster.Actor
	patch            cluster.UpdatePatch
}

func (f *fakeClusterService) ApplyUpdate(_ context.Context, clusterID uint, actor cluster.Actor, patch cluster.UpdatePatch) (uint, error) {
	f.updatedClusterID = clusterID
	f.actor = actor
	f.patch = patch
	return f.versionID, nil
}

func (f *fakeClusterService) FindByTeamAndIndex(_ context.Context, teamID uint, index uint) (*model.Cluster, error) {
	f.indexTeamID = teamID
	f.index = index
	return f.cluster, nil
}

func (f *fakeClusterService) FindAll(_ context.Context) ([]model.Cluster, error) {
	return nil, nil
}

type fakeProofService struct {
	proof *model.Proof

	teamID       uint
	clusterIndex uint
	block        proof.BlockInfo
	status       string
}

func (f *fakeProofService) Queued(_ context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo) (*model.Proof, error) {
	f.teamID, f.clusterIndex, f.block, f.status = teamID, clusterIndex, block, model.ProofStatusQueued
	return f.proof, nil
}

func (f *fakeProofService) Proving(_ context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo) (*model.Proof, error) {
	f.teamID, f.clusterIndex, f.block, f.status = teamID, clusterIndex, block, model.ProofStatusProving
	return f.proof, nil
}

func (f *fakeProofService) Proved(_ context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo, _ proof.ProvedResult) (*model.Proof, error) {
	f.teamID, f.clusterIndex, f.block, f.status = teamID, clusterIndex, block, model.ProofStatusProved
	return f.proof, nil
}

func (f *fakeProofService) FindRecent(_ context.Context, _ int) ([]model.Proof, error) {
	return nil, nil
}
