package component

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func button(token string) Control {
	return Control{Kind: KindButton, Label: "b", Style: 1, StateToken: token}
}

func treeOfSizes(sizes ...int) Tree {
	var t Tree
	for _, size := range sizes {
		row := Row{}
		for i := 0; i < size; i++ {
			row.Controls = append(row.Controls, button("t"))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestAllocateFirstControl(t *testing.T) {
	t.Parallel()

	got, ordinal, err := Tree{}.Allocate(button("first"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(got.Rows) != 1 || len(got.Rows[0].Controls) != 1 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if ordinal != 0 {
		t.Fatalf("ordinal mismatch: got %d want 0", ordinal)
	}
}

func TestAllocateOverflowsToNewRow(t *testing.T) {
	t.Parallel()

	got, ordinal, err := treeOfSizes(5).Allocate(button("sixth"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("row count mismatch: got %d want 2", len(got.Rows))
	}
	if len(got.Rows[1].Controls) != 1 {
		t.Fatalf("new row size mismatch: got %d want 1", len(got.Rows[1].Controls))
	}
	if ordinal != 5 {
		t.Fatalf("ordinal mismatch: got %d want 5", ordinal)
	}
}

func TestAllocateFullTree(t *testing.T) {
	t.Parallel()

	full := treeOfSizes(5, 5, 5, 5, 5)
	if _, _, err := full.Allocate(button("overflow")); !errors.Is(err, ErrTreeFull) {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	}
	if full.ControlCount() != 25 {
		t.Fatalf("failed allocation modified tree: %d controls", full.ControlCount())
	}
}

func TestAllocateFirstFit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		sizes       []int
		wantRow     int
		wantOrdinal int
	}{
		{name: "gap in first row", sizes: []int{3, 5, 2}, wantRow: 0, wantOrdinal: 3},
		{name: "gap in middle row", sizes: []int{5, 2, 5}, wantRow: 1, wantOrdinal: 7},
		{name: "gap in last row", sizes: []int{5, 5, 1}, wantRow: 2, wantOrdinal: 11},
		{name: "all full appends", sizes: []int{5, 5}, wantRow: 2, wantOrdinal: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := treeOfSizes(tt.sizes...)
			got, ordinal, err := tree.Allocate(button("new"))
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			if ordinal != tt.wantOrdinal {
				t.Fatalf("ordinal mismatch: got %d want %d", ordinal, tt.wantOrdinal)
			}

			wantSizes := append([]int(nil), tt.sizes...)
			if tt.wantRow == len(wantSizes) {
				wantSizes = append(wantSizes, 1)
			} else {
				wantSizes[tt.wantRow]++
			}
			for i, size := range wantSizes {
				if len(got.Rows[i].Controls) != size {
					t.Fatalf("row %d size mismatch: got %d want %d", i, len(got.Rows[i].Controls), size)
				}
			}
		})
	}
}

func TestAllocateIsPure(t *testing.T) {
	t.Parallel()

	original := treeOfSizes(2, 5)
	if _, _, err := original.Allocate(button("discarded")); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if len(original.Rows) != 2 {
		t.Fatalf("row count changed: got %d want 2", len(original.Rows))
	}
	if len(original.Rows[0].Controls) != 2 || len(original.Rows[1].Controls) != 5 {
		t.Fatalf("row sizes changed: %d/%d", len(original.Rows[0].Controls), len(original.Rows[1].Controls))
	}
}

func TestNextSlotMatchesAllocate(t *testing.T) {
	t.Parallel()

	tree := treeOfSizes(5, 3)
	planned, err := tree.NextSlot(KindButton)
	if err != nil {
		t.Fatalf("NextSlot failed: %v", err)
	}
	_, ordinal, err := tree.Allocate(button("new"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if planned != ordinal {
		t.Fatalf("NextSlot disagrees with Allocate: %d vs %d", planned, ordinal)
	}
}

func TestTextInputRowsHoldOneControl(t *testing.T) {
	t.Parallel()

	input := Control{Kind: KindTextInput, Label: "Secret", StateToken: "secret"}

	tree, _, err := Tree{}.Allocate(input)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	tree, _, err = tree.Allocate(Control{Kind: KindTextInput, Label: "Other", StateToken: "other"})
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(tree.Rows) != 2 {
		t.Fatalf("text inputs shared a row: %+v", tree)
	}

	// A button must not join an input row either.
	tree, _, err = tree.Allocate(button("b"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(tree.Rows) != 3 {
		t.Fatalf("button joined a text input row: %+v", tree)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tree, _, err := treeOfSizes(2).Allocate(Control{Kind: KindButton, Label: "Ping", Emoji: "🏓", Style: 2, StateToken: "pong:i:e30"})
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	serialized, err := tree.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	parsed, err := ParseTree(serialized)
	if err != nil {
		t.Fatalf("ParseTree failed: %v", err)
	}
	if parsed.ControlCount() != tree.ControlCount() {
		t.Fatalf("control count mismatch: got %d want %d", parsed.ControlCount(), tree.ControlCount())
	}
	if got := parsed.Rows[0].Controls[2]; got.Emoji != "🏓" || got.StateToken != "pong:i:e30" {
		t.Fatalf("control fields lost: %+v", got)
	}
}

func TestParseTreeEmpty(t *testing.T) {
	t.Parallel()

	tree, err := ParseTree("")
	if err != nil {
		t.Fatalf("ParseTree failed: %v", err)
	}
	if len(tree.Rows) != 0 {
		t.Fatalf("expected empty tree, got %+v", tree)
	}
}

func TestMessageComponents(t *testing.T) {
	t.Parallel()

	tree := Tree{Rows: []Row{{Controls: []Control{
		{Kind: KindButton, Label: "Toggle", Style: 3, StateToken: "role-toggle:i:e30", Emoji: "✨"},
		{Kind: KindButton, Label: "Dead", Style: 1, StateToken: "avatar-guild:i:e30", Disabled: true},
	}}}}

	rows := tree.MessageComponents()
	if len(rows) != 1 {
		t.Fatalf("row count mismatch: got %d want 1", len(rows))
	}
	row, ok := rows[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("expected ActionsRow, got %T", rows[0])
	}

	first, ok := row.Components[0].(discordgo.Button)
	if !ok {
		t.Fatalf("expected Button, got %T", row.Components[0])
	}
	if first.CustomID != "role-toggle:i:e30" {
		t.Fatalf("custom id mismatch: got %q", first.CustomID)
	}
	if first.Style != discordgo.SuccessButton {
		t.Fatalf("style mismatch: got %d", first.Style)
	}
	if first.Emoji == nil || first.Emoji.Name != "✨" {
		t.Fatalf("emoji mismatch: %+v", first.Emoji)
	}

	second := row.Components[1].(discordgo.Button)
	if !second.Disabled {
		t.Fatal("disabled flag lost")
	}
}
