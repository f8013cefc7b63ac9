package raw

import "sort"

// Registry owns the indirect objects of one document. Object numbers are
// handed out in creation order so identical build sequences produce identical
// numbering.
type Registry struct {
	objects map[ObjectRef]Object
	next    int
}

// NewRegistry returns an empty registry; the first object is number 1.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[ObjectRef]Object), next: 1}
}

// Reserve allocates a reference without storing an object yet.
func (r *Registry) Reserve() ObjectRef {
	ref := ObjectRef{Num: r.next}
	r.next++
	return ref
}

// Add stores obj under a fresh reference.
func (r *Registry) Add(obj Object) ObjectRef {
	ref := r.Reserve()
	r.objects[ref] = obj
	return ref
}

// Set stores obj under a previously reserved reference.
func (r *Registry) Set(ref ObjectRef, obj Object) {
	if ref.Num >= r.next {
		r.next = ref.Num + 1
	}
	r.objects[ref] = obj
}

// Lookup returns the object stored under ref.
func (r *Registry) Lookup(ref ObjectRef) (Object, bool) {
	o, ok := r.objects[ref]
	return o, ok
}

// Len returns the number of stored objects.
func (r *Registry) Len() int { return len(r.objects) }

// Size is one past the highest allocated object number.
func (r *Registry) Size() int { return r.next }

// Refs returns the stored references in ascending object number.
func (r *Registry) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(r.objects))
	for ref := range r.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })
	return refs
}

// Clone returns a registry sharing the stored objects but with its own index,
// so a writer can add finalization objects without touching the original.
func (r *Registry) Clone() *Registry {
	c := &Registry{objects: make(map[ObjectRef]Object, len(r.objects)), next: r.next}
	for k, v := range r.objects {
		c.objects[k] = v
	}
	return c
}
