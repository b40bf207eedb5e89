package server

// groupRegistry owns the group name → group mapping. Groups are created
// lazily and enumerate in creation order. Only the coordinator mutates the
// registry, always under its mutex.
type groupRegistry struct {
	groups  map[string]Group
	order   []string
	factory GroupFactory
}

func newGroupRegistry(factory GroupFactory) *groupRegistry {
	return &groupRegistry{
		groups:  make(map[string]Group),
		factory: factory,
	}
}

// LookupOrCreate returns the group registered under name, creating an empty
// one at the end of the enumeration order if none exists.
func (r *groupRegistry) LookupOrCreate(name string) Group {
	if group, ok := r.groups[name]; ok {
		return group
	}
	group := r.factory(name)
	r.groups[name] = group
	r.order = append(r.order, name)
	return group
}

// Lookup returns the group registered under name without creating one.
func (r *groupRegistry) Lookup(name string) (Group, bool) {
	group, ok := r.groups[name]
	return group, ok
}

// RemoveIfEmpty drops the entry once both its member count and meter count
// are zero. No-op while either is nonzero or the name is unknown.
func (r *groupRegistry) RemoveIfEmpty(name string) {
	group, ok := r.groups[name]
	if !ok {
		return
	}
	if group.MemberCount() != 0 || group.MeterCount() != 0 {
		return
	}
	delete(r.groups, name)
	for i, candidate := range r.order {
		if candidate == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered group names in creation order.
func (r *groupRegistry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Groups returns the registered groups in creation order.
func (r *groupRegistry) Groups() []Group {
	groups := make([]Group, 0, len(r.order))
	for _, name := range r.order {
		groups = append(groups, r.groups[name])
	}
	return groups
}

// Len reports the number of live groups.
func (r *groupRegistry) Len() int {
	return len(r.groups)
}
