package cluster

// Actor identifies who is applying a change. Admin actors may update any
// cluster; everyone else only their own team's.
type Actor struct {
	TeamID uint
	Admin  bool
}

// MachineSpec is one line of a requested machine configuration. Cloud
// instances are referenced by SKU name and resolved against the catalog at
// write time.
type MachineSpec struct {
	Machine            string
	MachineCount       uint
	CloudInstanceName  string
	CloudInstanceCount uint
}

// UpdatePatch is the common sparse update shape all entry points translate
// into. A nil field means "no change", never "clear".
type UpdatePatch struct {
	// Metadata fields. They mutate the cluster in place and never create a
	// version.
	Nickname            *string
	Description         *string
	CycleType           *string
	ProofType           *string
	HardwareDescription *string
	NumGpus             *uint
	IsActive            *bool

	// Version triggering fields. Any of them differing from the current
	// version creates a new one.
	ZkvmVersionID *uint
	VkPath        *string
	Configuration []MachineSpec

	// ExpectedVersionID optionally extends the concurrency check to the
	// caller's own read of the current version id.
	ExpectedVersionID *uint
}

func (p UpdatePatch) hasMetadata() bool {
	return p.Nickname != nil ||
		p.Description != nil ||
		p.CycleType != nil ||
		p.ProofType != nil ||
		p.HardwareDescription != nil ||
		p.NumGpus != nil ||
		p.IsActive != nil
}

func (p UpdatePatch) hasVersionFields() bool {
	return p.ZkvmVersionID != nil || p.VkPath != nil || p.Configuration != nil
}
