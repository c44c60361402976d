package team

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/proofscan/proof-manager/pkg/model"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(repository teamRepository) *service {
	return &service{repository}
}

type teamRepository interface {
	create(ctx context.Context, team *model.Team) error
	save(ctx context.Context, team *model.Team) error
	find(ctx context.Context, id uint) (*model.Team, error)
	findAll(ctx context.Context) ([]model.Team, error)
	findByApiKeyHash(ctx context.Context, hash string) (*model.Team, error)
	createApiKey(ctx context.Context, key *model.ApiKey) error
}

type service struct {
	repository teamRepository
}

func (s *service) Create(ctx context.Context, name, website, logoUrl string) (*model.Team, error) {
	team := &model.Team{
		Name:    name,
		Website: website,
		LogoUrl: logoUrl,
	}

	err := s.repository.create(ctx, team)
	if err != nil {
		return nil, err
	}

	return team, nil
}

func (s *service) Find(ctx context.Context, id uint) (*model.Team, error) {
	return s.repository.find(ctx, id)
}

func (s *service) FindAll(ctx context.Context) ([]model.Team, error) {
	return s.repository.findAll(ctx)
}

// Approve marks a team as reviewed so its clusters appear on public listings
// and it may submit proofs.
func (s *service) Approve(ctx context.Context, id uint) (*model.Team, error) {
	team, err := s.repository.find(ctx, id)
	if err != nil {
		return nil, err
	}

	team.Approved = true
	err = s.repository.save(ctx, team)
	if err != nil {
		return nil, err
	}

	return team, nil
}

func (s *service) FindTeamByApiKeyHash(ctx context.Context, hash string) (*model.Team, error) {
	return s.repository.findByApiKeyHash(ctx, hash)
}

// CreateApiKey mints a new API key for a team. The plaintext key is returned
// exactly once; only its hash is stored.
func (s *service) CreateApiKey(ctx context.Context, teamID uint) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	key := hex.EncodeToString(buf)

	hash := sha256.Sum256([]byte(key))
	err := s.repository.createApiKey(ctx, &model.ApiKey{
		KeyHash: hex.EncodeToString(hash[:]),
		TeamID:  teamID,
		Active:  true,
	})
	if err != nil {
		return "", err
	}

	return key, nil
}
