package manifest

import "sort"

// FileName is the manifest file looked up in each package directory.
const FileName = "package.json"

// Package is the subset of package.json the linker cares about.
type Package struct {
	Name             string            `json:"name"`
	Version          string            `json:"version,omitempty"`
	Scripts          map[string]string `json:"scripts,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
}

// DependencyNames returns the union of runtime, dev, and peer dependency
// names, sorted.
func (p *Package) DependencyNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, deps := range []map[string]string{p.Dependencies, p.DevDependencies, p.PeerDependencies} {
		for name := range deps {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// DependsOn reports whether name appears in any of the three dependency kinds.
func (p *Package) DependsOn(name string) bool {
	_, ok := p.DeclaredRange(name)
	return ok
}

// DeclaredRange returns the version range the manifest declares for name,
// checking dependencies, then devDependencies, then peerDependencies.
func (p *Package) DeclaredRange(name string) (string, bool) {
	for _, deps := range []map[string]string{p.Dependencies, p.DevDependencies, p.PeerDependencies} {
		if r, ok := deps[name]; ok {
			return r, true
		}
	}
	return "", false
}

// HasScript reports whether the manifest defines the named npm script.
func (p *Package) HasScript(name string) bool {
	_, ok := p.Scripts[name]
	return ok
}
