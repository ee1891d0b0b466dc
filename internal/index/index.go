package index

// ProjectIndex defines the interface for project indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type ProjectIndex interface {
	UpsertProject(p ProjectRow, sections []SectionRow, blockTags []string) error
	DeleteProject(name string) error
	GetChecksum(name string) (string, error)
	AllChecksums() (map[string]string, error)
	GetProject(name string) (*ProjectRow, error)
	ListProjects() ([]ProjectRow, error)
	Sections(project string) ([]SectionRow, error)
	Inventory(projects []string) (*Inventory, error)
	Search(query string, limit int) ([]SearchResult, error)
	Reset() error
	Close() error
}

// Verify *DB satisfies ProjectIndex at compile time.
var _ ProjectIndex = (*DB)(nil)
