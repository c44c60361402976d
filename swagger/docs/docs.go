package docs

// swagger:parameters findClusterById clusterUpdate dashboardUpdateCluster approveTeam createTeamApiKey
type IdParam struct {
	// in: path
	// required: true
	ID uint `json:"id"`
}

// swagger:parameters apiUpdateCluster
type IndexParam struct {
	// 1-based position of the cluster within the team, in creation order
	// in: path
	// required: true
	Index uint `json:"index"`
}

// swagger:response
type Error struct {
	// The error message
	//in: body
	Message string
}

// swagger:response UpdateClusterResponse
type UpdateClusterResponse struct {
	//in: body
	Body struct {
		ClusterID uint `json:"cluster_id"`
		// id of the cluster version current after the update
		VersionID uint `json:"version_id"`
	}
}
