// Package cluster implements cluster version management: a cluster's
// provable configuration is an append-only sequence of immutable versions,
// with exactly one active at a time. Every entry point (internal API, public
// API, dashboard form) funnels into ApplyUpdate so they all enforce the same
// invariants through the same transactional protocol.
package cluster

import (
	"context"
	"log/slog"

	"golang.org/x/exp/slices"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/event"
	"github.com/proofscan/proof-manager/pkg/model"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(logger *slog.Logger, repository clusterRepository, catalogService catalogService, invalidator invalidator, publisher publisher) *service {
	return &service{
		logger:         logger,
		repository:     repository,
		catalogService: catalogService,
		invalidator:    invalidator,
		publisher:      publisher,
	}
}

type clusterRepository interface {
	find(ctx context.Context, id uint) (*model.Cluster, error)
	findByTeamAndIndex(ctx context.Context, teamID uint, index uint) (*model.Cluster, error)
	findAll(ctx context.Context) ([]model.Cluster, error)
	findAllByTeam(ctx context.Context, teamID uint) ([]model.Cluster, error)
	create(ctx context.Context, cluster *model.Cluster) error
	latestVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error)
	activeVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error)
	hasActiveCluster(ctx context.Context, teamID uint, proverTypeID uint, excludeClusterID uint) (bool, error)
	applyChange(ctx context.Context, clusterID uint, ch change) (uint, error)
}

type catalogService interface {
	FindZkvmVersion(ctx context.Context, id uint) (*model.ZkvmVersion, error)
	FindCloudInstancesByName(ctx context.Context, names []string) ([]model.CloudInstance, error)
	FindProverType(ctx context.Context, id uint) (*model.ProverType, error)
}

type invalidator interface {
	InvalidateCluster(ctx context.Context, clusterID uint)
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, payload any)
}

type service struct {
	logger         *slog.Logger
	repository     clusterRepository
	catalogService catalogService
	invalidator    invalidator
	publisher      publisher
}

// ApplyUpdate applies a sparse patch to a cluster. Metadata fields mutate the
// cluster in place; version triggering fields that differ from the current
// version create a new immutable version. All validation happens before the
// transaction opens; the commit itself is atomic. It returns the id of the
// version that is current after the update (0 if the cluster has none).
func (s *service) ApplyUpdate(ctx context.Context, clusterID uint, actor Actor, patch UpdatePatch) (uint, error) {
	cluster, err := s.findOwned(ctx, clusterID, actor)
	if err != nil {
		return 0, err
	}

	current, err := s.repository.activeVersion(ctx, cluster.ID)
	if err != nil {
		return 0, err
	}

	var currentID uint
	if current != nil {
		currentID = current.ID
	}
	if patch.ExpectedVersionID != nil && *patch.ExpectedVersionID != currentID {
		return 0, NewConcurrentModification("cluster %d is at version id %d, not %d", cluster.ID, currentID, *patch.ExpectedVersionID)
	}

	if err := s.validateMetadata(ctx, cluster, patch); err != nil {
		return 0, err
	}

	newVersion, err := s.buildVersion(ctx, cluster, current, patch)
	if err != nil {
		return 0, err
	}

	ch := change{
		metadata:          metadataColumns(patch),
		newVersion:        newVersion,
		expectedVersionID: currentID,
	}
	if newVersion != nil {
		ch.metadata["is_multi_machine"] = isMultiMachine(newVersion.Machines)
	}

	versionID, err := s.repository.applyChange(ctx, cluster.ID, ch)
	if err != nil {
		return 0, err
	}

	s.invalidator.InvalidateCluster(ctx, cluster.ID)
	s.publisher.Publish(ctx, event.ClusterUpdated, map[string]any{
		"clusterId": cluster.ID,
		"versionId": versionID,
	})

	s.logger.InfoContext(ctx, "Applied cluster update", "clusterId", cluster.ID, "versionId", versionID, "newVersion", newVersion != nil)
	return versionID, nil
}

// findOwned loads a cluster and enforces ownership. Clusters of other teams
// read as not found so existence isn't leaked.
func (s *service) findOwned(ctx context.Context, clusterID uint, actor Actor) (*model.Cluster, error) {
	cluster, err := s.repository.find(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	if !actor.Admin && cluster.TeamID != actor.TeamID {
		return nil, errdef.NewNotFound("cluster %d doesn't exist", clusterID)
	}

	return cluster, nil
}

func (s *service) validateMetadata(ctx context.Context, cluster *model.Cluster, patch UpdatePatch) error {
	if patch.NumGpus != nil && cluster.ProverTypeID != nil {
		if model.GpuClassOf(*patch.NumGpus) != cluster.GpuClass() {
			return NewUnsupportedGpuReconfiguration("changing cluster %d from %s to %s is not supported, create a new cluster instead", cluster.ID, cluster.GpuClass(), model.GpuClassOf(*patch.NumGpus))
		}
	}

	if patch.IsActive != nil && *patch.IsActive && !cluster.IsActive && cluster.ProverTypeID != nil {
		conflict, err := s.repository.hasActiveCluster(ctx, cluster.TeamID, *cluster.ProverTypeID, cluster.ID)
		if err != nil {
			return err
		}
		if conflict {
			return NewActiveClusterConflict("team %d already has an active cluster of prover type %d", cluster.TeamID, *cluster.ProverTypeID)
		}
	}

	return nil
}

// buildVersion decides whether the patch triggers a new version and, if so,
// validates it against the catalogs and assembles the version row. A nil
// result means the patch is metadata only.
func (s *service) buildVersion(ctx context.Context, cluster *model.Cluster, current *model.ClusterVersion, patch UpdatePatch) (*model.ClusterVersion, error) {
	if !patch.hasVersionFields() {
		return nil, nil
	}

	// resolve the requested fields, inheriting anything unspecified from the
	// current version
	zkvmVersionID, vkPath, machines, err := s.resolveVersionFields(ctx, current, patch)
	if err != nil {
		return nil, err
	}

	if current != nil && !versionDiffers(current, zkvmVersionID, vkPath, machines) {
		return nil, nil
	}

	return &model.ClusterVersion{
		ZkvmVersionID: zkvmVersionID,
		VkPath:        vkPath,
		Machines:      machines,
	}, nil
}

func (s *service) resolveVersionFields(ctx context.Context, current *model.ClusterVersion, patch UpdatePatch) (uint, string, []model.ClusterMachine, error) {
	var zkvmVersionID uint
	var vkPath string
	var machines []model.ClusterMachine
	if current != nil {
		zkvmVersionID = current.ZkvmVersionID
		vkPath = current.VkPath
		machines = copyMachines(current.Machines)
	}

	if patch.ZkvmVersionID != nil {
		if _, err := s.catalogService.FindZkvmVersion(ctx, *patch.ZkvmVersionID); err != nil {
			if errdef.IsNotFound(err) {
				return 0, "", nil, NewInvalidZkvmVersion("zkVM version %d doesn't exist", *patch.ZkvmVersionID)
			}
			return 0, "", nil, err
		}
		zkvmVersionID = *patch.ZkvmVersionID
	}

	if patch.VkPath != nil {
		vkPath = *patch.VkPath
	}

	if patch.Configuration != nil {
		machines, err := s.resolveConfiguration(ctx, patch.Configuration)
		if err != nil {
			return 0, "", nil, err
		}
		return s.requireComplete(zkvmVersionID, vkPath, machines)
	}

	return s.requireComplete(zkvmVersionID, vkPath, machines)
}

// requireComplete enforces the shape every version must have: a zkVM version
// and at least one machine assignment.
func (s *service) requireComplete(zkvmVersionID uint, vkPath string, machines []model.ClusterMachine) (uint, string, []model.ClusterMachine, error) {
	if zkvmVersionID == 0 {
		return 0, "", nil, NewInvalidConfiguration("a zkVM version is required for a cluster version")
	}
	if len(machines) == 0 {
		return 0, "", nil, NewInvalidConfiguration("at least one machine assignment is required for a cluster version")
	}
	return zkvmVersionID, vkPath, machines, nil
}

// resolveConfiguration maps every cloud instance name to its catalog row. A
// count mismatch between requested and resolved instances fails the whole
// update so a typo can't be silently dropped.
func (s *service) resolveConfiguration(ctx context.Context, specs []MachineSpec) ([]model.ClusterMachine, error) {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		if !slices.Contains(names, spec.CloudInstanceName) {
			names = append(names, spec.CloudInstanceName)
		}
	}

	instances, err := s.catalogService.FindCloudInstancesByName(ctx, names)
	if err != nil {
		return nil, err
	}

	instancesByName := make(map[string]model.CloudInstance, len(instances))
	for _, instance := range instances {
		instancesByName[instance.InstanceName] = instance
	}

	if len(instancesByName) != len(names) {
		missing := make([]string, 0)
		for _, name := range names {
			if _, ok := instancesByName[name]; !ok {
				missing = append(missing, name)
			}
		}
		return nil, NewInvalidConfiguration("unknown cloud instances: %v", missing)
	}

	machines := make([]model.ClusterMachine, 0, len(specs))
	for _, spec := range specs {
		machines = append(machines, model.ClusterMachine{
			Machine:            spec.Machine,
			MachineCount:       spec.MachineCount,
			CloudInstanceID:    instancesByName[spec.CloudInstanceName].ID,
			CloudInstanceCount: spec.CloudInstanceCount,
		})
	}

	return machines, nil
}

// versionDiffers reports whether the resolved fields describe a different
// configuration than the current version.
func versionDiffers(current *model.ClusterVersion, zkvmVersionID uint, vkPath string, machines []model.ClusterMachine) bool {
	if current.ZkvmVersionID != zkvmVersionID || current.VkPath != vkPath {
		return true
	}
	return !machinesEqual(current.Machines, machines)
}

func machinesEqual(a, b []model.ClusterMachine) bool {
	if len(a) != len(b) {
		return false
	}

	as := copyMachines(a)
	bs := copyMachines(b)
	sortMachines(as)
	sortMachines(bs)
	for i := range as {
		if as[i].Machine != bs[i].Machine ||
			as[i].MachineCount != bs[i].MachineCount ||
			as[i].CloudInstanceID != bs[i].CloudInstanceID ||
			as[i].CloudInstanceCount != bs[i].CloudInstanceCount {
			return false
		}
	}
	return true
}

func sortMachines(machines []model.ClusterMachine) {
	slices.SortFunc(machines, func(a, b model.ClusterMachine) int {
		if a.Machine != b.Machine {
			if a.Machine < b.Machine {
				return -1
			}
			return 1
		}
		return int(a.CloudInstanceID) - int(b.CloudInstanceID)
	})
}

func copyMachines(machines []model.ClusterMachine) []model.ClusterMachine {
	copied := make([]model.ClusterMachine, len(machines))
	for i, machine := range machines {
		copied[i] = model.ClusterMachine{
			Machine:            machine.Machine,
			MachineCount:       machine.MachineCount,
			CloudInstanceID:    machine.CloudInstanceID,
			CloudInstanceCount: machine.CloudInstanceCount,
		}
	}
	return copied
}

// isMultiMachine is true if the configuration spans more than one machine
// line or any line has a machine count greater than one.
func isMultiMachine(machines []model.ClusterMachine) bool {
	if len(machines) > 1 {
		return true
	}
	for _, machine := range machines {
		if machine.MachineCount > 1 {
			return true
		}
	}
	return false
}

// CreateClusterInput describes a new cluster. When a configuration is
// supplied the cluster is created together with its first version.
type CreateClusterInput struct {
	Nickname            string
	Description         string
	CycleType           string
	ProofType           string
	HardwareDescription string
	NumGpus             uint
	ProverTypeID        *uint

	ZkvmVersionID uint
	VkPath        string
	Configuration []MachineSpec
}

// Create registers a cluster for a team. New clusters start inactive; a team
// activates them through ApplyUpdate once the prover is ready, which is where
// the one-active-cluster-per-prover-type rule is enforced.
func (s *service) Create(ctx context.Context, teamID uint, input CreateClusterInput) (*model.Cluster, error) {
	if input.ProverTypeID != nil {
		proverType, err := s.catalogService.FindProverType(ctx, *input.ProverTypeID)
		if err != nil {
			if errdef.IsNotFound(err) {
				return nil, errdef.NewBadRequest("prover type %d doesn't exist", *input.ProverTypeID)
			}
			return nil, err
		}
		if proverType.GpuClass != model.GpuClassOf(input.NumGpus) {
			return nil, NewUnsupportedGpuReconfiguration("prover type %q requires a %s cluster", proverType.Name, proverType.GpuClass)
		}
	}

	cluster := &model.Cluster{
		TeamID:              teamID,
		Nickname:            input.Nickname,
		Description:         input.Description,
		CycleType:           input.CycleType,
		ProofType:           input.ProofType,
		HardwareDescription: input.HardwareDescription,
		NumGpus:             input.NumGpus,
		ProverTypeID:        input.ProverTypeID,
	}

	if len(input.Configuration) > 0 || input.ZkvmVersionID != 0 {
		if _, err := s.catalogService.FindZkvmVersion(ctx, input.ZkvmVersionID); err != nil {
			if errdef.IsNotFound(err) {
				return nil, NewInvalidZkvmVersion("zkVM version %d doesn't exist", input.ZkvmVersionID)
			}
			return nil, err
		}

		machines, err := s.resolveConfiguration(ctx, input.Configuration)
		if err != nil {
			return nil, err
		}
		if len(machines) == 0 {
			return nil, NewInvalidConfiguration("at least one machine assignment is required for a cluster version")
		}

		cluster.IsMultiMachine = isMultiMachine(machines)
		cluster.Versions = []model.ClusterVersion{{
			Version:       1,
			ZkvmVersionID: input.ZkvmVersionID,
			VkPath:        input.VkPath,
			IsActive:      true,
			Machines:      machines,
		}}
	}

	if err := s.repository.create(ctx, cluster); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateCluster(ctx, cluster.ID)
	s.publisher.Publish(ctx, event.ClusterCreated, map[string]any{
		"clusterId": cluster.ID,
		"teamId":    teamID,
	})

	return cluster, nil
}

// Find returns a cluster visible to the actor.
func (s *service) Find(ctx context.Context, clusterID uint, actor Actor) (*model.Cluster, error) {
	return s.findOwned(ctx, clusterID, actor)
}

// FindByTeamAndIndex resolves the public API's per-team index addressing.
func (s *service) FindByTeamAndIndex(ctx context.Context, teamID uint, index uint) (*model.Cluster, error) {
	return s.repository.findByTeamAndIndex(ctx, teamID, index)
}

// FindAll lists the clusters of approved teams for public consumption.
func (s *service) FindAll(ctx context.Context) ([]model.Cluster, error) {
	return s.repository.findAll(ctx)
}

// FindAllByTeam lists a team's own clusters.
func (s *service) FindAllByTeam(ctx context.Context, teamID uint) ([]model.Cluster, error) {
	return s.repository.findAllByTeam(ctx, teamID)
}

// ActiveVersion returns the version currently attributed to new proofs, or
// nil when the cluster has no configuration yet.
func (s *service) ActiveVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error) {
	return s.repository.activeVersion(ctx, clusterID)
}

// LatestVersion returns the most recently created version. It reads the same
// row as ActiveVersion because commits always activate the version they
// insert; both accessors exist because call sites historically meant
// different things by "current".
func (s *service) LatestVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error) {
	return s.repository.latestVersion(ctx, clusterID)
}

func metadataColumns(patch UpdatePatch) map[string]any {
	columns := make(map[string]any)
	if patch.Nickname != nil {
		columns["nickname"] = *patch.Nickname
	}
	if patch.Description != nil {
		columns["description"] = *patch.Description
	}
	if patch.CycleType != nil {
		columns["cycle_type"] = *patch.CycleType
	}
	if patch.ProofType != nil {
		columns["proof_type"] = *patch.ProofType
	}
	if patch.HardwareDescription != nil {
		columns["hardware_description"] = *patch.HardwareDescription
	}
	if patch.NumGpus != nil {
		columns["num_gpus"] = *patch.NumGpus
	}
	if patch.IsActive != nil {
		columns["is_active"] = *patch.IsActive
	}
	return columns
}
