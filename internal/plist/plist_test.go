package plist

import (
	"reflect"
	"testing"
)

func TestAppendBranching(t *testing.T) {
	base := Of(1, 2)
	left := base.Append(3)
	right := base.Append(4).Append(5)

	if got := base.Slice(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("base = %v", got)
	}
	if got := left.Slice(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("left = %v", got)
	}
	if got := right.Slice(); !reflect.DeepEqual(got, []int{1, 2, 4, 5}) {
		t.Errorf("right = %v", got)
	}
}

func TestEmpty(t *testing.T) {
	var l List[string]
	if l.Len() != 0 {
		t.Errorf("Len = %d", l.Len())
	}
	if _, ok := l.Last(); ok {
		t.Error("Last on empty list reported a value")
	}
	if len(l.Slice()) != 0 {
		t.Error("Slice of empty list not empty")
	}
}

func TestReverseStopsEarly(t *testing.T) {
	var seen []int
	Of(1, 2, 3, 4).Reverse(func(v int) bool {
		seen = append(seen, v)
		return v != 3
	})
	if !reflect.DeepEqual(seen, []int{4, 3}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestConcatAndMap(t *testing.T) {
	l := Of(1, 2).Concat(Of(3))
	if got := l.Slice(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Concat = %v", got)
	}
	if got := Of[int]().Concat(l); got.Len() != 3 {
		t.Errorf("empty.Concat Len = %d", got.Len())
	}
	doubled := Map(l, func(v int) int { return v * 2 })
	if got := doubled.Slice(); !reflect.DeepEqual(got, []int{2, 4, 6}) {
		t.Errorf("Map = %v", got)
	}
	if last, _ := doubled.Last(); last != 6 {
		t.Errorf("Last = %d", last)
	}
}
