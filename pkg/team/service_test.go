package team

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/model"
)

func TestCreateApiKey(t *testing.T) {
	t.Run("MintedKeyMatchesStoredHash", func(t *testing.T) {
		repo := &fakeRepository{teams: map[uint]*model.Team{1: {ID: 1, Name: "prover-team"}}}
		svc := NewService(repo)

		key, err := svc.CreateApiKey(context.Background(), 1)

		require.NoError(t, err)
		assert.Len(t, key, 64)
		require.Len(t, repo.apiKeys, 1)
		hash := sha256.Sum256([]byte(key))
		assert.Equal(t, hex.EncodeToString(hash[:]), repo.apiKeys[0].KeyHash)
		assert.Equal(t, uint(1), repo.apiKeys[0].TeamID)
		assert.True(t, repo.apiKeys[0].Active)
	})

	t.Run("KeysAreUnique", func(t *testing.T) {
		repo := &fakeRepository{teams: map[uint]*model.Team{1: {ID: 1}}}
		svc := NewService(repo)

		key1, err := svc.CreateApiKey(context.Background(), 1)
		require.NoError(t, err)
		key2, err := svc.CreateApiKey(context.Background(), 1)
		require.NoError(t, err)

		assert.NotEqual(t, key1, key2)
	})
}

func TestApprove(t *testing.T) {
	t.Run("MarksTeamApproved", func(t *testing.T) {
		repo := &fakeRepository{teams: map[uint]*model.Team{1: {ID: 1, Name: "prover-team"}}}
		svc := NewService(repo)

		team, err := svc.Approve(context.Background(), 1)

		require.NoError(t, err)
		assert.True(t, team.Approved)
		assert.True(t, repo.teams[1].Approved)
	})

	t.Run("UnknownTeamFails", func(t *testing.T) {
		svc := NewService(&fakeRepository{teams: map[uint]*model.Team{}})

		_, err := svc.Approve(context.Background(), 7)

		assert.True(t, errdef.IsNotFound(err))
	})
}

type fakeRepository struct {
	teams   map[uint]*model.Team
	apiKeys []*model.ApiKey
	nextID  uint
}

func (f *fakeRepository) create(_ context.Context, team *model.Team) error {
	f.nextID++
	team.ID = f.nextID
	f.teams[team.ID] = team
	return nil
}

func (f *fakeRepository) save(_ context.Context, team *model.Team) error {
	f.teams[team.ID] = team
	return nil
}

func (f *fakeRepository) find(_ context.Context, id uint) (*model.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return nil, errdef.NewNotFound("team %d doesn't exist", id)
	}
	return team, nil
}

func (f *fakeRepository) findAll(_ context.Context) ([]model.Team, error) {
	var teams []model.Team
	for _, team := range f.teams {
		teams = append(teams, *team)
	}
	return teams, nil
}

func (f *fakeRepository) findByApiKeyHash(_ context.Context, hash string) (*model.Team, error) {
	for _, key := range f.apiKeys {
		if key.KeyHash == hash && key.Active {
			return f.teams[key.TeamID], nil
		}
	}
	return nil, errdef.NewNotFound("no team for the given API key")
}

func (f *fakeRepository) createApiKey(_ context.Context, key *model.ApiKey) error {
	f.apiKeys = append(f.apiKeys, key)
	return nil
}
