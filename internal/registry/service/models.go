package service

// Side selects one side of a relation.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

func (s Side) Valid() bool { return s == SideA || s == SideB }

// RegistryInfo describes a registry. Items is only filled by GetRegistry.
type RegistryInfo struct {
	Name         string   `json:"name"`
	KeyPolicy    string   `json:"key_policy"`
	AccessPolicy string   `json:"access_policy"`
	Owner        string   `json:"owner"`
	Allowed      []string `json:"allowed,omitempty"`
	Size         int      `json:"size"`
	Items        []string `json:"items,omitempty"`
}

// KeyLookup reports whether a key is present and its current index.
type KeyLookup struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
	ID      int    `json:"id"`
}

// RelationInfo describes a relation. Links is only filled by GetRelation.
type RelationInfo struct {
	Name       string      `json:"name"`
	Owner      string      `json:"owner"`
	Identity   string      `json:"identity"`
	RegistryA  string      `json:"registry_a"`
	LifecycleA string      `json:"lifecycle_a"`
	RegistryB  string      `json:"registry_b"`
	LifecycleB string      `json:"lifecycle_b"`
	TotalLinks int         `json:"total_links"`
	Links      [][2]string `json:"links,omitempty"`
}

// LinkedKeys lists the peers of one key on the given side, in index order.
type LinkedKeys struct {
	Side   Side     `json:"side"`
	Key    string   `json:"key"`
	Count  int      `json:"count"`
	Linked []string `json:"linked"`
}
