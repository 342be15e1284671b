package snapshot

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

func newWorld(t *testing.T, width, height int) *world.World {
	t.Helper()
	reg, err := opcode.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	cfg := world.DefaultConfig()
	cfg.Width, cfg.Height = width, height
	w, err := world.New(world.Options{
		Config:      cfg,
		Genome:      genome.DefaultConfig(),
		Interpreter: vm.DefaultConfig(),
		Registry:    reg,
		Seed:        5,
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestPopulation_RoundTrip(t *testing.T) {
	src := newWorld(t, 12, 10)
	if err := src.Populate(30); err != nil {
		t.Fatal(err)
	}
	src.Run(10)
	if len(src.Bots()) == 0 {
		t.Skip("population died out")
	}

	p := Capture(src)
	if p.Turn != 10 || p.Seed != 5 || len(p.Bots) != len(src.Bots()) {
		t.Fatalf("captured turn %d seed %d bots %d", p.Turn, p.Seed, len(p.Bots))
	}

	path := filepath.Join(t.TempDir(), "population.cbor")
	if err := Save(path, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dst := newWorld(t, 12, 10)
	if err := Restore(dst, loaded); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dst.Turn() != 10 {
		t.Errorf("restored turn = %d, want 10", dst.Turn())
	}
	if got := Capture(dst); !reflect.DeepEqual(got, p) {
		t.Error("population differs after save and restore")
	}

	id := p.Bots[0].ID
	want, _ := src.Describe(id)
	got, err := dst.Describe(id)
	if err != nil || got != want {
		t.Errorf("restored program differs:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	w := newWorld(t, 6, 6)
	if err := w.Populate(5); err != nil {
		t.Fatal(err)
	}
	a, err := Marshal(Capture(w))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Marshal(Capture(w))
	if !reflect.DeepEqual(a, b) {
		t.Error("canonical encoding is not stable")
	}
}

func TestRestoreErrors(t *testing.T) {
	src := newWorld(t, 6, 6)
	if err := src.Populate(3); err != nil {
		t.Fatal(err)
	}
	p := Capture(src)
	if len(p.Bots) == 0 {
		t.Skip("no bot survived its embryo program")
	}

	if err := Restore(newWorld(t, 7, 6), p); err == nil {
		t.Error("Restore accepted a different grid size")
	}
	if err := Restore(src, p); err == nil {
		t.Error("Restore accepted a populated world")
	}

	old := *p
	old.Version = 99
	if err := Restore(newWorld(t, 6, 6), &old); !errors.Is(err, ErrVersion) {
		t.Errorf("Restore error = %v, want ErrVersion", err)
	}
	data, _ := Marshal(&old)
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersion) {
		t.Errorf("Unmarshal error = %v, want ErrVersion", err)
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("Unmarshal accepted garbage")
	}

	bad := *p
	bad.Bots = append([]Bot(nil), p.Bots...)
	bad.Bots[0].Genes = [][]int8{{1}}
	if err := Restore(newWorld(t, 6, 6), &bad); err == nil {
		t.Error("Restore accepted malformed genes")
	}
}
