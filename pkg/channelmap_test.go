package viewer

import "testing"

func TestChannelMapLookups(t *testing.T) {
	m := NewChannelMap(testChannels())

	if m.Len() != 6 {
		t.Fatalf("expected 6 channels, got %d", m.Len())
	}
	ch, ok := m.ByName("V02")
	if !ok || ch.DAQID != 1002 {
		t.Fatalf("ByName returned %+v (%v)", ch, ok)
	}
	ch, ok = m.ByDAQID(3001)
	if !ok || ch.Name != "P01" {
		t.Fatalf("ByDAQID returned %+v (%v)", ch, ok)
	}
	ch, ok = m.ByPosition(2, 2)
	if !ok || ch.Name != "C01" {
		t.Fatalf("ByPosition returned %+v (%v)", ch, ok)
	}
	if _, ok := m.ByPosition(9, 1); ok {
		t.Fatalf("expected no detector at string 9")
	}
	if got := m.ByString(1); len(got) != 2 || got[0].Name != "V01" || got[1].Name != "V02" {
		t.Fatalf("ByString returned %v", got)
	}
	if got := m.BySystem("auxs"); len(got) != 1 || got[0].Name != "BSLN01" {
		t.Fatalf("BySystem returned %v", got)
	}
	strings := m.Strings()
	if len(strings) != 3 || strings[0] != 1 || strings[2] != 3 {
		t.Fatalf("Strings returned %v", strings)
	}
}

func TestChannelMapProcessable(t *testing.T) {
	m := NewChannelMap(testChannels())
	got := m.Processable()
	want := []string{"V01", "V02", "P01"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestChannelMapIsACopy(t *testing.T) {
	chs := testChannels()
	m := NewChannelMap(chs)
	chs[1].Name = "changed"
	out := m.Channels()
	out[0].Name = "changed"

	if _, ok := m.ByName("V01"); !ok {
		t.Fatalf("channel map changed with its input")
	}
	if m.Channels()[0].Name == "changed" {
		t.Fatalf("channel map changed through Channels")
	}
	if !m.Equal(NewChannelMap(testChannels())) {
		t.Fatalf("expected equal maps")
	}
}

func TestChannelPaths(t *testing.T) {
	ch := Channel{DAQID: 1027201}
	if ch.ID() != "ch1027201" || ch.RawPath() != "ch1027201/raw" {
		t.Fatalf("unexpected paths %s %s", ch.ID(), ch.RawPath())
	}
}
