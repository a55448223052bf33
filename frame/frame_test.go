package frame

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/everydev1618/vegascript/value"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleTree() *Tree {
	root := New("0", epoch)
	root.Variables = value.ObjectOf("input", "hi")
	tree := NewTree(root)

	stmt := tree.Enter(root, 0, epoch.Add(5*time.Millisecond))
	call := tree.Enter(stmt, 0, epoch.Add(6*time.Millisecond))
	arg := tree.Enter(call, 0, epoch.Add(7*time.Millisecond))
	arg.Complete("foo", epoch.Add(8*time.Millisecond))
	call.HasState = true
	call.State = value.ObjectOf("attempts", 1.0)
	call.Events = append(call.Events, &Event{Timestamp: epoch.Add(time.Second), Payload: "bar"})
	call.Suspend(epoch.Add(9 * time.Millisecond))

	// an If whose false condition skipped both branches
	ifs := tree.Enter(root, 2, epoch.Add(10*time.Millisecond))
	cond := tree.Enter(ifs, 0, epoch.Add(11*time.Millisecond))
	cond.Complete(false, epoch.Add(11*time.Millisecond))
	ifs.SetChild(2, nil)
	return tree
}

func TestStatusCodes(t *testing.T) {
	for _, s := range []Status{StatusRunning, StatusDone, StatusError, StatusAwaiting} {
		got, ok := StatusFromCode(s.Code())
		if !ok || got != s {
			t.Errorf("StatusFromCode(%q) = %q, want %q", s.Code(), got, s)
		}
	}
	if _, ok := StatusFromCode("X"); ok {
		t.Error("StatusFromCode(X) should fail")
	}
}

func TestTreeLookup(t *testing.T) {
	tree := sampleTree()
	arg, ok := tree.Get("0:0:0:0")
	if !ok {
		t.Fatal("arg frame not indexed")
	}
	v, ok := tree.Lookup(arg, "input")
	if !ok || v != "hi" {
		t.Errorf("Lookup(input) = %v, %v, want hi", v, ok)
	}
	if _, ok := tree.Lookup(arg, "missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
	p, ok := tree.Parent(arg)
	if !ok || p.Trace != "0:0:0" {
		t.Errorf("Parent(arg) = %v", p)
	}
	if _, ok := tree.Parent(tree.Root()); ok {
		t.Error("root should have no parent")
	}
}

func TestWireRoundTrip(t *testing.T) {
	tree := sampleTree()
	snap, err := Capture(tree.Root(), epoch)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	root, err := back.Restore(epoch)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Re-encoding must give the same bytes.
	again, err := Capture(root, epoch)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	data2, _ := json.Marshal(again)
	if string(data) != string(data2) {
		t.Errorf("round trip changed the wire form:\n%s\n%s", data, data2)
	}

	restored := NewTree(root)
	call, ok := restored.Get("0:0:0")
	if !ok || call.Status != StatusAwaiting {
		t.Fatalf("call frame = %+v", call)
	}
	if len(call.Pending()) != 1 || call.Events[0].Payload != "bar" {
		t.Errorf("events = %+v", call.Events)
	}
	if !call.HasState || call.State.(*value.Object).Lookup("attempts") != 1.0 {
		t.Errorf("state = %v", call.State)
	}
	if !call.StartedAt.Equal(epoch.Add(6 * time.Millisecond)) {
		t.Errorf("StartedAt = %v", call.StartedAt)
	}
	if root.Child(1) != nil {
		t.Error("skipped statement slot was materialized")
	}
	ifs := root.Child(2)
	if len(ifs.Children) != 3 || ifs.Children[1] != nil || ifs.Children[2] != nil {
		t.Errorf("sparse children = %v", ifs.Children)
	}
}

func TestWireShape(t *testing.T) {
	f := New("0", epoch.Add(3*time.Millisecond))
	f.Fail("boom", epoch.Add(4*time.Millisecond))
	snap, err := Capture(f, epoch)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	got, _ := json.Marshal(snap.Root)
	want := `{"s":"E","t":3,"u":4,"err":"boom"}`
	if string(got) != want {
		t.Errorf("wire = %s, want %s", got, want)
	}

	var w Wire
	_ = json.Unmarshal([]byte(`{"s":"Q","t":0,"u":0}`), &w)
	if _, err := (&Snapshot{Root: &w}).Restore(epoch); err == nil {
		t.Error("unknown status code should fail")
	}
}

func TestPending(t *testing.T) {
	f := New("0:1", epoch)
	f.Events = []*Event{{Payload: 1.0, Processed: true}, {Payload: 2.0}}
	got := f.Pending()
	if len(got) != 1 || got[0].Payload != 2.0 {
		t.Errorf("Pending() = %v", got)
	}
}
