package compiler

import (
	"atlang/internal/bytecode"
)

// Binding says where a variable lives at run time.
type Binding struct {
	Name    string
	Dynamic bool // stored in a type-tagged cell
	Index   int  // local slot or cell index
	Type    bytecode.ValueKind
}

// Store is the compile-time variable table. Names are collected first,
// then sealed: a name always assigned with one static type gets a typed
// local slot, anything else gets a dynamic cell.
type Store struct {
	chunk *bytecode.Chunk

	types map[string]bytecode.ValueKind
	mixed map[string]bool
	order []string

	bindings map[string]Binding
}

func newStore(chunk *bytecode.Chunk) *Store {
	return &Store{
		chunk:    chunk,
		types:    make(map[string]bytecode.ValueKind),
		mixed:    make(map[string]bool),
		bindings: make(map[string]Binding),
	}
}

// declare records an assignment of type t to name.
// KindNone means the type is only known at run time.
func (s *Store) declare(name string, t bytecode.ValueKind) {
	prev, ok := s.types[name]
	if !ok {
		s.types[name] = t
		s.order = append(s.order, name)

		if t == bytecode.KindNone {
			s.mixed[name] = true
		}

		return
	}

	if prev != t || t == bytecode.KindNone {
		s.mixed[name] = true
	}
}

func (s *Store) seal() error {
	for _, name := range s.order {
		if _, err := s.allocate(name, s.mixed[name], s.types[name]); err != nil {
			return err
		}
	}

	return nil
}

// Resolve returns the binding of name. Names never assigned anywhere in
// the program are bound to an empty cell.
func (s *Store) Resolve(name string) (Binding, error) {
	if b, ok := s.bindings[name]; ok {
		return b, nil
	}

	return s.allocate(name, true, bytecode.KindNone)
}

// Bindings lists the program's variables in order of first assignment.
func (s *Store) Bindings() []Binding {
	bs := make([]Binding, 0, len(s.order))
	for _, name := range s.order {
		bs = append(bs, s.bindings[name])
	}

	return bs
}

func (s *Store) allocate(name string, dynamic bool, t bytecode.ValueKind) (b Binding, err error) {
	b = Binding{Name: name, Dynamic: dynamic, Type: t}

	if dynamic {
		b.Type = bytecode.KindNone
		b.Index, err = s.chunk.AddCell(name)
	} else {
		b.Index, err = s.chunk.AddLocal(name, t)
	}

	if err != nil {
		return b, err
	}

	s.bindings[name] = b

	return b, nil
}
