package conference

import "github.com/vovakirdan/videoconf/internal/store"

// Instructions tell the caller what to do after Start.
// It is either DirectInstructions or GroupInstructions.
type Instructions interface {
	Kind() store.CallKind
	ID() string
	isInstructions()
}

// DirectInstructions: ring Callee for call CallID.
type DirectInstructions struct {
	CallID string
	Callee string
}

func (DirectInstructions) Kind() store.CallKind { return store.CallKindDirect }
func (i DirectInstructions) ID() string         { return i.CallID }
func (DirectInstructions) isInstructions()      {}

// GroupInstructions: the conference CallID is open for room members.
type GroupInstructions struct {
	CallID string
}

func (GroupInstructions) Kind() store.CallKind { return store.CallKindGroup }
func (i GroupInstructions) ID() string         { return i.CallID }
func (GroupInstructions) isInstructions()      {}
