package vm

import (
	"github.com/josharian/intern"
)

// ObjKind discriminates the payload carried by an Obj header. This core
// defines only OString; the enum exists so a future object kind (e.g. a
// function or class) has somewhere to land without disturbing this shape.
type ObjKind int

const (
	OString ObjKind = iota
)

// Obj is the header shared by every heap-allocated reference value: a
// kind tag plus the intrusive link to the next object in the owning VM's
// all-objects list. Strings are immutable once constructed; there is no
// per-object refcount or reclamation, only bulk teardown via freeObjects.
type Obj struct {
	Kind ObjKind
	next *Obj

	// str and hash are valid when Kind == OString.
	str  string
	hash uint32
}

func (o *Obj) String() string {
	switch o.Kind {
	case OString:
		return o.str
	default:
		return "<obj>"
	}
}

// fnv1a is the classic 32-bit FNV-1a hash, precomputed at string
// construction and reserved for future string interning; this core never
// reads it back.
func fnv1a(s string) uint32 {
	const (
		offset uint32 = 2166136261
		prime  uint32 = 16777619
	)
	h := offset
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// allocString links a freshly allocated string object at the head of the
// VM's heap list and wraps it as a Value. Every string that ever enters
// the running program — whether copied from a source literal by the
// compiler or produced by runtime concatenation — goes through here, so
// the object-list root in §5 stays the single source of truth.
func (vm *VM) allocString(s string) Value {
	o := &Obj{Kind: OString, str: intern.String(s), hash: fnv1a(s)}
	o.next = vm.objects
	vm.objects = o
	return VObj{o}
}

// freeObjects walks the heap list once, severing each link so the
// objects become unreachable and eligible for collection. A
// non-memory-safe host would call libc free() per node here (see
// original_source/src/lib/utils/memory.c); in Go, unlinking is the
// faithful analogue of bulk teardown — the contract in spec.md §5 is
// only that every allocated object stays reachable from the VM until
// this call, not that the host manages the bytes itself.
func (vm *VM) freeObjects() {
	for o := vm.objects; o != nil; {
		next := o.next
		o.next = nil
		o = next
	}
	vm.objects = nil
}
