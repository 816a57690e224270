package catalog

// Task is a named workflow stage and the tables it delivers.
type Task struct {
	Name       string   `yaml:"name" json:"name"`
	Tables     []string `yaml:"tables" json:"tables,omitempty"`
	AllTables  bool     `yaml:"all_tables" json:"all_tables,omitempty"`
	Production bool     `yaml:"-" json:"production"`
}

type tasksDoc struct {
	Production []string `yaml:"production"`
	Tasks      []Task   `yaml:"tasks"`
}
