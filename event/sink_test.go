package event

import "testing"

func TestFuncAdapterForwards(t *testing.T) {
	var got []Event
	s := Func(func(e Event) { got = append(got, e) })
	s.Emit(Event{Kind: KindCommand, Tick: 7})
	if len(got) != 1 || got[0].Kind != KindCommand || got[0].Tick != 7 {
		t.Fatalf("got = %+v", got)
	}
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	var a, b int
	m := Multi{
		Func(func(Event) { a++ }),
		nil,
		Func(func(Event) { b++ }),
	}
	m.Emit(Event{Kind: KindThreat})
	if a != 1 || b != 1 {
		t.Fatalf("fan-out counts = (%d, %d), want (1, 1)", a, b)
	}
}
