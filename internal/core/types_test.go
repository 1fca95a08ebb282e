package core

import "testing"

func TestStageFor(t *testing.T) {
	tests := []struct {
		name      string
		turnCount int
		maxTurns  int
		want      Stage
	}{
		{"FirstTurnIsIntro", 0, 10, StageIntro},
		{"SecondTurnIsResponse", 1, 10, StageResponse},
		{"MidDebateIsResponse", 5, 10, StageResponse},
		{"LastBeforeWindowIsResponse", 7, 10, StageResponse},
		{"WindowStartIsConclusion", 8, 10, StageConclusion},
		{"FinalTurnIsConclusion", 9, 10, StageConclusion},
		{"PastCapIsConclusion", 12, 10, StageConclusion},
		{"ShortDebateWindow", 2, 4, StageConclusion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StageFor(tt.turnCount, tt.maxTurns); got != tt.want {
				t.Errorf("StageFor(%d, %d) = %q, want %q", tt.turnCount, tt.maxTurns, got, tt.want)
			}
		})
	}
}

func TestSpeakerAt(t *testing.T) {
	d := &Debate{ChannelID1: "ch-1", ChannelID2: "ch-2"}

	for pos := 0; pos < 10; pos++ {
		want := "ch-1"
		if pos%2 == 1 {
			want = "ch-2"
		}
		if got := d.SpeakerAt(pos); got != want {
			t.Errorf("SpeakerAt(%d) = %q, want %q", pos, got, want)
		}
	}
}

func TestOpponent(t *testing.T) {
	d := &Debate{ChannelID1: "ch-1", ChannelID2: "ch-2"}

	if got := d.Opponent("ch-1"); got != "ch-2" {
		t.Errorf("Opponent(ch-1) = %q", got)
	}
	if got := d.Opponent("ch-2"); got != "ch-1" {
		t.Errorf("Opponent(ch-2) = %q", got)
	}
}

func TestConcludable(t *testing.T) {
	tests := []struct {
		name   string
		debate Debate
		want   bool
	}{
		{"InProgress", Debate{Status: StatusInProgress}, true},
		{"ReadyToConclude", Debate{Status: StatusReadyToConclude}, true},
		{"ConcludedWithoutSummaries", Debate{Status: StatusConcluded}, true},
		{"ConcludedWithOneSummary", Debate{Status: StatusConcluded, Summary1: "done"}, true},
		{"ConcludedWithBothSummaries", Debate{Status: StatusConcluded, Summary1: "a", Summary2: "b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.debate.Concludable(); got != tt.want {
				t.Errorf("Concludable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAcceptsTurns(t *testing.T) {
	d := &Debate{Status: StatusInProgress, MaxTurns: 10}

	if !d.AcceptsTurns(0) {
		t.Error("fresh debate should accept turns")
	}
	if !d.AcceptsTurns(9) {
		t.Error("debate one short of the cap should accept turns")
	}
	if d.AcceptsTurns(10) {
		t.Error("debate at the cap should not accept turns")
	}

	d.Status = StatusConcluded
	if d.AcceptsTurns(0) {
		t.Error("concluded debate should not accept turns")
	}
}

func TestGenerateID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if len(id) != 10 {
			t.Fatalf("id length = %d, want 10", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
