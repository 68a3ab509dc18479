package quality

import (
	"strings"
	"testing"

	"github.com/rickgao/intraday-data/internal/model"
)

func bar(hhmmss string) model.Bar {
	return model.Bar{Day: "20250101", Time: hhmmss, Open: 100, High: 100, Low: 100, Close: 100}
}

func TestCheck_ContiguousFromOpen(t *testing.T) {
	s := model.Series{bar("090000"), bar("090100"), bar("090200"), bar("090300")}

	res := Check(s, "090000")
	if !res.Valid {
		t.Errorf("Valid = false, reason %q", res.Reason)
	}
}

func TestCheck_Empty(t *testing.T) {
	res := Check(nil, "090000")
	if res.Valid {
		t.Error("empty series validated")
	}
	if res.Reason != "empty series" {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestCheck_WrongFirstBar(t *testing.T) {
	s := model.Series{bar("090100"), bar("090200")}

	res := Check(s, "090000")
	if res.Valid {
		t.Error("series missing the open bar validated")
	}
	if !strings.Contains(res.Reason, "session open") {
		t.Errorf("Reason = %q, want session-open mismatch", res.Reason)
	}
}

func TestCheck_NXTOpen(t *testing.T) {
	s := model.Series{bar("083000"), bar("083100")}

	if res := Check(s, "083000"); !res.Valid {
		t.Errorf("NXT series invalid: %q", res.Reason)
	}
	if res := Check(s, "090000"); res.Valid {
		t.Error("NXT series validated against KRX open")
	}
}

func TestCheck_GapDetection(t *testing.T) {
	s := model.Series{bar("090000"), bar("090100"), bar("090400"), bar("090500")}

	res := Check(s, "090000")
	if res.Valid {
		t.Error("gapped series validated")
	}
	if len(res.Gaps) != 1 {
		t.Fatalf("len(Gaps) = %d, want 1", len(res.Gaps))
	}
	if !strings.Contains(res.Gaps[0], "090400") {
		t.Errorf("Gaps[0] = %q, want mention of 090400", res.Gaps[0])
	}
	if !strings.Contains(res.Gaps[0], "2 missing") {
		t.Errorf("Gaps[0] = %q, want 2 missing minutes", res.Gaps[0])
	}
}

func TestCheck_GapReportCap(t *testing.T) {
	// Every other minute missing: many gaps, reports capped at 5.
	var s model.Series
	hh := "090000"
	for i := 0; i < 20; i++ {
		s = append(s, bar(hh))
		next, err := model.AddMinutes(hh, 2)
		if err != nil {
			t.Fatal(err)
		}
		hh = next
	}

	res := Check(s, "090000")
	if res.Valid {
		t.Error("gapped series validated")
	}
	if len(res.Gaps) != 5 {
		t.Errorf("len(Gaps) = %d, want 5", len(res.Gaps))
	}
	if !strings.Contains(res.Reason, "19 gap(s)") {
		t.Errorf("Reason = %q, want full gap count", res.Reason)
	}
}

func TestCheck_DuplicatesTolerated(t *testing.T) {
	s := model.Series{bar("090000"), bar("090100"), bar("090100"), bar("090200")}

	if res := Check(s, "090000"); !res.Valid {
		t.Errorf("duplicated-minute series invalid: %q", res.Reason)
	}
}
