package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/everydev1618/vegascript/heap"
	"github.com/everydev1618/vegascript/trace"
	"github.com/everydev1618/vegascript/value"
)

// ErrBadWire is returned for serialized frames that cannot be restored.
var ErrBadWire = errors.New("malformed serialized frame")

// Wire is the compact serialized form of a frame. Timestamps are
// millisecond offsets from the owning agent's creation time and values are
// heap indices.
type Wire struct {
	S  string      `json:"s"`
	T  int64       `json:"t"`
	U  int64       `json:"u"`
	VR *int        `json:"vr,omitempty"`
	E  *string     `json:"err,omitempty"`
	V  *int        `json:"v,omitempty"`
	ST *int        `json:"st,omitempty"`
	EV []WireEvent `json:"ev,omitempty"`
	C  []*Wire     `json:"c,omitempty"`
}

// WireEvent is the serialized form of an Event.
type WireEvent struct {
	T  int64 `json:"t"`
	P  int   `json:"p"`
	PR bool  `json:"pr"`
}

// ToWire serializes f and its subtree, pushing embedded values into s.
func ToWire(f *Frame, epoch time.Time, s *heap.Serializer) (*Wire, error) {
	w := &Wire{
		S: f.Status.Code(),
		T: delta(f.StartedAt, epoch),
		U: delta(f.UpdatedAt, epoch),
	}
	push := func(v value.Value) (*int, error) {
		idx, err := s.Push(v)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", f.Trace, err)
		}
		return &idx, nil
	}
	var err error
	if f.Variables != nil {
		if w.VR, err = push(f.Variables); err != nil {
			return nil, err
		}
	}
	if f.Status == StatusError {
		msg := f.Err
		w.E = &msg
	}
	if f.Status == StatusDone && !value.IsUndefined(f.Value) {
		if w.V, err = push(f.Value); err != nil {
			return nil, err
		}
	}
	if f.HasState {
		if w.ST, err = push(f.State); err != nil {
			return nil, err
		}
	}
	for _, ev := range f.Events {
		p, err := s.Push(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("frame %s event: %w", f.Trace, err)
		}
		w.EV = append(w.EV, WireEvent{T: delta(ev.Timestamp, epoch), P: p, PR: ev.Processed})
	}
	if len(f.Children) > 0 {
		w.C = make([]*Wire, len(f.Children))
		for i, c := range f.Children {
			if c == nil {
				continue
			}
			if w.C[i], err = ToWire(c, epoch, s); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

// FromWire rebuilds the frame at tr and its subtree.
func FromWire(w *Wire, epoch time.Time, tr string, d *heap.Deserializer) (*Frame, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: frame %s is null", ErrBadWire, tr)
	}
	status, ok := StatusFromCode(w.S)
	if !ok {
		return nil, fmt.Errorf("%w: frame %s has status %q", ErrBadWire, tr, w.S)
	}
	f := &Frame{
		Trace:     tr,
		Status:    status,
		StartedAt: at(w.T, epoch),
		UpdatedAt: at(w.U, epoch),
		Value:     value.Undefined,
	}
	get := func(idx int) (value.Value, error) {
		v, err := d.Value(idx)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", tr, err)
		}
		return v, nil
	}
	if w.VR != nil {
		v, err := get(*w.VR)
		if err != nil {
			return nil, err
		}
		vars, ok := v.(*value.Object)
		if !ok {
			return nil, fmt.Errorf("%w: frame %s variables are %s", ErrBadWire, tr, value.Describe(v))
		}
		f.Variables = vars
	}
	if w.E != nil {
		f.Err = *w.E
	}
	if w.V != nil {
		v, err := get(*w.V)
		if err != nil {
			return nil, err
		}
		f.Value = v
	}
	if w.ST != nil {
		v, err := get(*w.ST)
		if err != nil {
			return nil, err
		}
		f.State, f.HasState = v, true
	}
	for _, ev := range w.EV {
		p, err := get(ev.P)
		if err != nil {
			return nil, err
		}
		f.Events = append(f.Events, &Event{Timestamp: at(ev.T, epoch), Payload: p, Processed: ev.PR})
	}
	if len(w.C) > 0 {
		f.Children = make([]*Frame, len(w.C))
		for i, cw := range w.C {
			if cw == nil {
				continue
			}
			c, err := FromWire(cw, epoch, trace.Child(tr, i), d)
			if err != nil {
				return nil, err
			}
			f.Children[i] = c
		}
	}
	return f, nil
}

// Snapshot is a self-contained encoding of one frame tree.
type Snapshot struct {
	Heap []heap.Entry `json:"heap"`
	Root *Wire        `json:"root"`
}

// Capture encodes root into a fresh heap.
func Capture(root *Frame, epoch time.Time) (*Snapshot, error) {
	s := heap.NewSerializer()
	w, err := ToWire(root, epoch, s)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Heap: s.Heap(), Root: w}, nil
}

// Restore decodes a snapshot taken by Capture.
func (sn *Snapshot) Restore(epoch time.Time) (*Frame, error) {
	return FromWire(sn.Root, epoch, trace.Root, heap.NewDeserializer(sn.Heap))
}

func delta(t, epoch time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli() - epoch.UnixMilli()
}

func at(d int64, epoch time.Time) time.Time {
	return time.UnixMilli(epoch.UnixMilli() + d).UTC()
}
