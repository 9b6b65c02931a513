package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NewProggie/Toco/pkg/ir"
)

// Scoping selects how names are resolved across frames.
type Scoping int

const (
	// ScopingFlat consults only the innermost frame: every function body is a
	// closed namespace.
	ScopingFlat Scoping = iota
	// ScopingLexical searches outward through enclosing frames.
	ScopingLexical
)

func (s Scoping) String() string {
	switch s {
	case ScopingFlat:
		return "flat"
	case ScopingLexical:
		return "lexical"
	default:
		return fmt.Sprintf("Scoping(%d)", int(s))
	}
}

func ParseScoping(value string) (Scoping, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "flat":
		return ScopingFlat, nil
	case "lexical":
		return ScopingLexical, nil
	default:
		return ScopingFlat, fmt.Errorf("unknown scoping %q (expected flat or lexical)", value)
	}
}

var (
	errUnbound    = errors.New("not declared")
	errNotVisible = errors.New("not visible")
)

// Frame is one lexical scope: its bindings, the block new instructions are
// appended to, and the pending return value of the function being lowered.
type Frame struct {
	bindings    map[string]ir.Value
	block       *ir.Block
	function    *ir.Function
	returnValue ir.Value
	parent      *Frame
}

func (f *Frame) Bindings() map[string]ir.Value { return f.bindings }
func (f *Frame) Block() *ir.Block              { return f.block }
func (f *Frame) Function() *ir.Function        { return f.function }
func (f *Frame) Parent() *Frame                { return f.parent }

// ScopeStack is the stack of frames owned by one lowering Context.
type ScopeStack struct {
	frames  []*Frame
	scoping Scoping
}

func NewScopeStack(scoping Scoping) *ScopeStack {
	return &ScopeStack{scoping: scoping}
}

// Push opens a frame whose insertion point is block.
func (s *ScopeStack) Push(block *ir.Block) *Frame {
	frame := &Frame{bindings: make(map[string]ir.Value), block: block}
	if block != nil {
		frame.function = block.Parent()
	}
	if top := s.top(); top != nil {
		frame.parent = top
	}
	s.frames = append(s.frames, frame)
	return frame
}

// Pop discards the innermost frame and its bindings.
func (s *ScopeStack) Pop() error {
	if len(s.frames) == 0 {
		return lowerError(Internal, nil, "pop of empty scope stack")
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

func (s *ScopeStack) top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// CurrentBindings returns the innermost frame's bindings; nil when no frame is active.
func (s *ScopeStack) CurrentBindings() map[string]ir.Value {
	if top := s.top(); top != nil {
		return top.bindings
	}
	return nil
}

// CurrentInsertionPoint returns the block instructions are appended to.
func (s *ScopeStack) CurrentInsertionPoint() *ir.Block {
	if top := s.top(); top != nil {
		return top.block
	}
	return nil
}

func (s *ScopeStack) SetReturnValue(v ir.Value) error {
	top := s.top()
	if top == nil {
		return lowerError(Internal, nil, "return value set without an active frame")
	}
	top.returnValue = v
	return nil
}

func (s *ScopeStack) ReturnValue() ir.Value {
	if top := s.top(); top != nil {
		return top.returnValue
	}
	return nil
}

// Bind records storage for name in the innermost frame, replacing any previous binding.
func (s *ScopeStack) Bind(name string, storage ir.Value) error {
	top := s.top()
	if top == nil {
		return lowerError(Internal, nil, "declaration of %s without an active frame", name)
	}
	top.bindings[name] = storage
	return nil
}

// Resolve finds the storage bound to name. Under lexical scoping enclosing
// frames are searched too, but a stack slot of another function is never
// visible: only module globals cross function boundaries.
func (s *ScopeStack) Resolve(name string) (ir.Value, error) {
	top := s.top()
	if top == nil {
		return nil, fmt.Errorf("%s %w: no active frame", name, errUnbound)
	}
	if storage, ok := top.bindings[name]; ok {
		return storage, nil
	}
	if s.scoping != ScopingLexical {
		return nil, fmt.Errorf("%s %w", name, errUnbound)
	}
	for frame := top.parent; frame != nil; frame = frame.parent {
		storage, ok := frame.bindings[name]
		if !ok {
			continue
		}
		if _, global := storage.(*ir.Global); global || frame.function == top.function {
			return storage, nil
		}
		return nil, fmt.Errorf("%s is %w from %s", name, errNotVisible, functionName(top.function))
	}
	return nil, fmt.Errorf("%s %w", name, errUnbound)
}

func functionName(fn *ir.Function) string {
	if fn == nil {
		return "<none>"
	}
	return fn.Name()
}
