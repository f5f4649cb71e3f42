package graph

// State is the value that flows through a graph run: an ordered sequence of
// opaque items ("messages"). The executor treats the items as opaque but
// deep-copies the sequence at every routing hop so that concurrent siblings
// can never observe each other's mutations (spec §3, §5 P1).
type State struct {
	Messages []any
}

// NewState builds a State from the given messages, in order.
func NewState(messages ...any) State {
	return State{Messages: append([]any(nil), messages...)}
}

// Last returns the final message, or nil if State is empty.
func (s State) Last() any {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// Append returns a new State with msg appended; it does not mutate s.
func (s State) Append(msg any) State {
	out := make([]any, len(s.Messages)+1)
	copy(out, s.Messages)
	out[len(s.Messages)] = msg
	return State{Messages: out}
}

// Equal reports element-wise sequence equality, per spec §3.
func (s State) Equal(other State) bool {
	if len(s.Messages) != len(other.Messages) {
		return false
	}
	for i := range s.Messages {
		if s.Messages[i] != other.Messages[i] {
			return false
		}
	}
	return true
}

// deepCopy returns an independent copy of s. Messages that are themselves
// deep-copyable (via the stateCopier interface) are cloned; anything else is
// carried by value/reference as-is, matching the common case of immutable
// message payloads (strings, numbers, small structs).
func (s State) deepCopy() State {
	out := make([]any, len(s.Messages))
	for i, m := range s.Messages {
		if c, ok := m.(stateCopier); ok {
			out[i] = c.CopyMessage()
			continue
		}
		out[i] = m
	}
	return State{Messages: out}
}

// stateCopier lets message types opt into explicit deep-copy semantics when
// they carry mutable internal state (slices, maps, pointers).
type stateCopier interface {
	CopyMessage() any
}
