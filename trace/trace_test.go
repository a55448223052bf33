package trace

import (
	"errors"
	"reflect"
	"testing"
)

func TestChildAndParent(t *testing.T) {
	c := Child(Child(Root, 2), 0)
	if c != "0:2:0" {
		t.Fatalf("Child = %q, want 0:2:0", c)
	}
	p, ok := Parent(c)
	if !ok || p != "0:2" {
		t.Errorf("Parent(%q) = %q, %v", c, p, ok)
	}
	if _, ok := Parent(Root); ok {
		t.Error("root should have no parent")
	}
	if d := Depth(c); d != 2 {
		t.Errorf("Depth(%q) = %d, want 2", c, d)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		err  bool
	}{
		{"0", []int{}, false},
		{"0:3:1", []int{3, 1}, false},
		{"0:12", []int{12}, false},
		{"1:0", nil, true},
		{"0:x", nil, true},
		{"0:-1", nil, true},
		{"0::1", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.err {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("Parse(%q) err = %v, want ErrMalformed", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if back := Join(got); back != tt.in {
				t.Errorf("Join(Parse(%q)) = %q", tt.in, back)
			}
		})
	}
}
