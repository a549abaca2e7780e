package seed

// File represents the top-level structure of lists.yaml
type File struct {
	Lists []ListSpec `yaml:"lists"`
}

// ListSpec is one seeded list with its entries and roster.
type ListSpec struct {
	Slug          string             `yaml:"slug"`
	Title         string             `yaml:"title"`
	Description   string             `yaml:"description,omitempty"`
	Public        bool               `yaml:"public,omitempty"`
	Owner         string             `yaml:"owner"`
	Collaborators []CollaboratorSpec `yaml:"collaborators,omitempty"`
	URLs          []URLSpec          `yaml:"urls,omitempty"`
}

// CollaboratorSpec grants one explicit role.
type CollaboratorSpec struct {
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// URLSpec is one seeded entry.
type URLSpec struct {
	Address     string   `yaml:"address"`
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Category    string   `yaml:"category,omitempty"`
}
