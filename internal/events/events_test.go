package events

import (
	"bytes"
	"testing"

	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return NewLog(storage.NewMemory())
}

func appendN(t *testing.T, l *Log, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := l.Append(Event{
			Kind:   KindSeriesMinted,
			Time:   1_700_000_000 + uint64(i),
			Caller: types.Address{0x02},
			Series: 1,
			Amount: uint64(i + 1),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
}

func TestHead_EmptyLog(t *testing.T) {
	l := newTestLog(t)

	head, err := l.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 0 {
		t.Fatalf("empty log head %d", head)
	}
}

func TestAppend_AssignsDenseSequences(t *testing.T) {
	l := newTestLog(t)

	for want := uint64(1); want <= 5; want++ {
		seq, err := l.Append(Event{Kind: KindSeriesCreated, Series: want})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != want {
			t.Fatalf("assigned seq %d, want %d", seq, want)
		}
	}

	head, err := l.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 5 {
		t.Fatalf("head %d, want 5", head)
	}
}

func TestGet_Roundtrip(t *testing.T) {
	l := newTestLog(t)
	to := types.Address{0x07}
	seq, err := l.Append(Event{
		Kind:    KindEditionTransferred,
		Time:    1_700_000_123,
		Op:      types.OpID{0xab},
		Caller:  types.Address{0x02},
		Series:  3,
		Amount:  2,
		Locator: "ar://x",
		To:      &to,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	ev, ok, err := l.Get(seq)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if ev.Seq != seq || ev.Kind != KindEditionTransferred || ev.Series != 3 || ev.Amount != 2 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.To == nil || *ev.To != to {
		t.Fatalf("to address lost: %+v", ev.To)
	}
}

func TestGet_Missing(t *testing.T) {
	l := newTestLog(t)

	_, ok, err := l.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("missing entry reported present")
	}
}

func TestRange(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 10)

	evs, err := l.Range(4, 3)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(evs) != 3 || evs[0].Seq != 4 || evs[2].Seq != 6 {
		t.Fatalf("unexpected range: %+v", evs)
	}
}

func TestRange_FromZeroReadsStart(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 3)

	evs, err := l.Range(0, 100)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(evs) != 3 || evs[0].Seq != 1 {
		t.Fatalf("unexpected range: %+v", evs)
	}
}

func TestRange_TruncatesAtHead(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 5)

	evs, err := l.Range(4, 10)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(evs) != 2 || evs[1].Seq != 5 {
		t.Fatalf("unexpected range: %+v", evs)
	}

	evs, err = l.Range(6, 10)
	if err != nil {
		t.Fatalf("Range past head: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("range past head returned %d entries", len(evs))
	}
}

func TestAppend_OnOverlayVisibleAfterCommit(t *testing.T) {
	base := storage.NewMemory()
	overlay := storage.NewOverlay(base)

	staged := NewLog(overlay)
	if _, err := staged.Append(Event{Kind: KindSeriesCreated, Series: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	committed := NewLog(base)
	head, err := committed.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 0 {
		t.Fatal("staged append visible before commit")
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	head, err = committed.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != 1 {
		t.Fatalf("head %d after commit, want 1", head)
	}
}

func TestExport_SnapshotRoundtrip(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 7)

	var buf bytes.Buffer
	if err := l.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty snapshot")
	}

	var got []Event
	err := ReadSnapshot(&buf, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("snapshot entries %d, want 7", len(got))
	}
	for i, ev := range got {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("entry %d has seq %d", i, ev.Seq)
		}
		if ev.Amount != uint64(i+1) {
			t.Fatalf("entry %d has amount %d", i, ev.Amount)
		}
	}
}

func TestExport_EmptyLog(t *testing.T) {
	l := newTestLog(t)

	var buf bytes.Buffer
	if err := l.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	count := 0
	err := ReadSnapshot(&buf, func(Event) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if count != 0 {
		t.Fatalf("empty log produced %d entries", count)
	}
}
