package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatistics(t *testing.T) {
	s := openTestStore(t)

	for turn := 1; turn <= 5; turn++ {
		st := world.Statistic{Turn: turn, Alive: 10 * turn, Born: turn, AvgEnergy: 1.5 * float64(turn)}
		if err := s.RecordStatistic(42, st); err != nil {
			t.Fatalf("RecordStatistic(%d): %v", turn, err)
		}
	}
	if err := s.RecordStatistic(7, world.Statistic{Turn: 1, Alive: 99}); err != nil {
		t.Fatal(err)
	}
	// Replaces turn 3.
	if err := s.RecordStatistic(42, world.Statistic{Turn: 3, Alive: 1}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		seed     int64
		from, to int
		turns    []int
	}{
		{"all", 42, 0, -1, []int{1, 2, 3, 4, 5}},
		{"range", 42, 2, 4, []int{2, 3, 4}},
		{"other run", 7, 0, -1, []int{1}},
		{"unknown run", 8, 0, -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Statistics(tt.seed, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Statistics: %v", err)
			}
			if len(got) != len(tt.turns) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.turns))
			}
			for i, st := range got {
				if st.Turn != tt.turns[i] {
					t.Errorf("row %d turn = %d, want %d", i, st.Turn, tt.turns[i])
				}
			}
		})
	}

	got, _ := s.Statistics(42, 3, 3)
	if got[0].Alive != 1 {
		t.Errorf("turn 3 alive = %d, want replaced value 1", got[0].Alive)
	}
	got, _ = s.Statistics(42, 5, 5)
	if got[0] != (world.Statistic{Turn: 5, Alive: 50, Born: 5, AvgEnergy: 7.5}) {
		t.Errorf("turn 5 = %+v", got[0])
	}
}

func TestGenomeArchive(t *testing.T) {
	s := openTestStore(t)

	bots := []world.BotState{
		{ID: 1, Genes: [][]int8{{1, -64, 127}, {0, 0, -128}}},
		{ID: 2, Genes: [][]int8{{5, 5, 5}}},
	}
	if err := s.ArchiveGenomes(42, 100, bots); err != nil {
		t.Fatalf("ArchiveGenomes: %v", err)
	}
	if err := s.ArchiveGenomes(42, 200, bots[:1]); err != nil {
		t.Fatalf("ArchiveGenomes: %v", err)
	}

	genes, err := s.Genome(42, 100, 1)
	if err != nil {
		t.Fatalf("Genome: %v", err)
	}
	if len(genes) != 2 || genes[0][1] != -64 || genes[0][2] != 127 || genes[1][2] != -128 {
		t.Errorf("genes = %v", genes)
	}

	if _, err := s.Genome(42, 200, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing genome error = %v, want ErrNotFound", err)
	}

	turns, err := s.ArchivedTurns(42)
	if err != nil {
		t.Fatalf("ArchivedTurns: %v", err)
	}
	if len(turns) != 2 || turns[0] != 100 || turns[1] != 200 {
		t.Errorf("turns = %v, want [100 200]", turns)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordStatistic(1, world.Statistic{Turn: 9, Alive: 3}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Statistics(1, 0, -1)
	if err != nil || len(got) != 1 || got[0].Alive != 3 {
		t.Errorf("after reopen: %v, %v", got, err)
	}
}
