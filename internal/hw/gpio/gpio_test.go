package gpio

import "testing"

func TestMockDriver_PullUpReadsHigh(t *testing.T) {
	d := NewMockDriver()
	if err := d.SetupPin(17, InputPullUp); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.ReadPin(17); got != High {
		t.Errorf("pull-up input = %v, want High", got)
	}
	d.Set(17, Low)
	if got, _ := d.ReadPin(17); got != Low {
		t.Errorf("pressed input = %v, want Low", got)
	}
}

func TestMockDriver_WriteThenRead(t *testing.T) {
	d := NewMockDriver()
	if err := d.SetupPin(27, Output); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.ReadPin(27); got != Low {
		t.Errorf("fresh output = %v, want Low", got)
	}
	_ = d.WritePin(27, High)
	if got, _ := d.ReadPin(27); got != High {
		t.Errorf("after write = %v, want High", got)
	}
}

func TestMockDriver_UnknownMode(t *testing.T) {
	if err := NewMockDriver().SetupPin(1, PinMode(9)); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) = %T, want *MockDriver", d)
	}
}

func TestPinMode_String(t *testing.T) {
	cases := map[PinMode]string{Input: "input", Output: "output", InputPullUp: "input-pullup", 7: "PinMode(7)"}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(m), got, want)
		}
	}
}
