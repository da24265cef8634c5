package datanodes

import (
	"fmt"
	"sync"
)

// Variant is a specialization of the datanode handler that only
// operates on datanodes of one class.  Variants are registered once,
// usually from an init function, and looked up by name.
type Variant struct {
	Name string
	// Class is the datanode class required by the variant.  The
	// Generic variant leaves it empty and checks nothing.
	Class string
}

// Generic is the unspecialized handler every Open returns.
var Generic = Variant{Name: "datanode"}

var registry = struct {
	sync.RWMutex
	variants map[string]Variant
}{variants: map[string]Variant{Generic.Name: Generic}}

// RegisterVariant adds a variant called name bound to class.
// Registering the same name twice with a different class is an error.
func RegisterVariant(name, class string) (v Variant, err error) {
	if name == "" {
		return v, &ValidationError{Arg: "variant", Msg: "empty name"}
	}
	if class == "" {
		return v, &ValidationError{Arg: "variant", Msg: fmt.Sprintf("%s: empty class", name)}
	}
	registry.Lock()
	defer registry.Unlock()
	v = Variant{Name: name, Class: class}
	old, ok := registry.variants[name]
	if ok && old != v {
		return Variant{}, &ValidationError{
			Arg: "variant",
			Msg: fmt.Sprintf("%s already registered with class %q", name, old.Class),
		}
	}
	registry.variants[name] = v
	return
}

// LookupVariant returns the registered variant called name.
func LookupVariant(name string) (v Variant, ok bool) {
	registry.RLock()
	defer registry.RUnlock()
	v, ok = registry.variants[name]
	return
}

func (v Variant) registered() bool {
	got, ok := LookupVariant(v.Name)
	return ok && got == v
}

// AsType returns a new handler for the same directory specialized to
// v.  The datanode is reopened and its class checked against v.Class.
func (dn *Datanode) AsType(v Variant) (out *Datanode, err error) {
	if !v.registered() {
		return nil, &ValidationError{Arg: "variant", Msg: fmt.Sprintf("%q is not a registered datanode variant", v.Name)}
	}
	out, err = Open(dn.dir)
	if err != nil {
		return
	}
	if v.Class != "" {
		_, err = out.CheckClass(v.Class, true)
		if err != nil {
			return nil, err
		}
	}
	out.variant = v
	return
}

// OpenAs opens path as variant v.
func OpenAs(path string, v Variant) (dn *Datanode, err error) {
	dn, err = Open(path)
	if err != nil {
		return
	}
	return dn.AsType(v)
}
