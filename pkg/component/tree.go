package component

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Capacity limits Discord imposes on message component grids.
const (
	MaxRowControls     = 5 // buttons per action row
	MaxFormRowControls = 1 // text inputs per modal row
	MaxRows            = 5 // action rows per message
)

// ErrTreeFull is returned when every row is at capacity and no row can be
// appended.
var ErrTreeFull = errors.New("component: tree is full")

// Kind discriminates control types.
type Kind string

const (
	KindButton    Kind = "button"
	KindTextInput Kind = "text-input"
)

// Control is a single interactive element. It is immutable once rendered
// into a sent message; build a new Control to change one.
type Control struct {
	Kind        Kind   `json:"kind"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
	Style       int    `json:"style,omitempty"`
	StateToken  string `json:"state_token"`
	Disabled    bool   `json:"disabled,omitempty"`

	// Text input extras, unused for buttons.
	Required  bool   `json:"required,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Row is an ordered sequence of controls sharing one action row.
type Row struct {
	Controls []Control `json:"controls"`
}

// Tree is the full ordered set of rows attached to one message.
//
// Tree values are treated as immutable snapshots: Allocate returns a fresh
// copy and never mutates its receiver.
type Tree struct {
	Rows []Row `json:"rows"`
}

// fits reports whether the row can take one more control of c's kind.
// Text inputs get a dedicated row; button rows cap at MaxRowControls.
func (r Row) fits(c Control) bool {
	if len(r.Controls) == 0 {
		return true
	}
	capacity := MaxRowControls
	if c.Kind == KindTextInput || r.Controls[0].Kind == KindTextInput {
		capacity = MaxFormRowControls
	}
	return len(r.Controls) < capacity
}

// NextSlot reports the ordinal the next control of the given kind would be
// assigned, without modifying the tree. The ordinal is the total count of
// controls preceding the insertion point in tree order, not the index within
// the receiving row.
func (t Tree) NextSlot(kind Kind) (int, error) {
	_, ordinal, err := t.findSlot(Control{Kind: kind})
	return ordinal, err
}

// Allocate places ctrl into the first row with spare capacity, appending a
// new row when none has any. Scan-first-fit densifies early rows rather than
// round-robining, keeping later operator edits predictable.
//
// Returns the updated tree and the ordinal assigned to ctrl. The receiver is
// left untouched.
func (t Tree) Allocate(ctrl Control) (Tree, int, error) {
	rowIdx, ordinal, err := t.findSlot(ctrl)
	if err != nil {
		return Tree{}, 0, err
	}

	out := t.clone()
	if rowIdx == len(out.Rows) {
		out.Rows = append(out.Rows, Row{Controls: []Control{ctrl}})
	} else {
		out.Rows[rowIdx].Controls = append(out.Rows[rowIdx].Controls, ctrl)
	}
	return out, ordinal, nil
}

// findSlot locates the first-fit row for ctrl. rowIdx == len(t.Rows) means a
// new row must be appended.
func (t Tree) findSlot(ctrl Control) (rowIdx, ordinal int, err error) {
	for i, row := range t.Rows {
		ordinal += len(row.Controls)
		if row.fits(ctrl) {
			return i, ordinal, nil
		}
	}
	if len(t.Rows) >= MaxRows {
		return 0, 0, ErrTreeFull
	}
	return len(t.Rows), ordinal, nil
}

// ControlCount returns the total number of controls in the tree.
func (t Tree) ControlCount() int {
	n := 0
	for _, row := range t.Rows {
		n += len(row.Controls)
	}
	return n
}

func (t Tree) clone() Tree {
	out := Tree{Rows: make([]Row, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = Row{Controls: append([]Control(nil), row.Controls...)}
	}
	return out
}

// Marshal serializes the tree for persistence.
func (t Tree) Marshal() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("component: marshal tree: %w", err)
	}
	return string(data), nil
}

// ParseTree deserializes a persisted tree. An empty string is an empty tree,
// matching a freshly published menu with no buttons yet.
func ParseTree(serialized string) (Tree, error) {
	if serialized == "" {
		return Tree{}, nil
	}
	var t Tree
	if err := json.Unmarshal([]byte(serialized), &t); err != nil {
		return Tree{}, fmt.Errorf("component: parse tree: %w", err)
	}
	return t, nil
}

// MessageComponents renders the tree into discordgo's wire representation.
func (t Tree) MessageComponents() []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(t.Rows))
	for _, row := range t.Rows {
		inner := make([]discordgo.MessageComponent, 0, len(row.Controls))
		for _, ctrl := range row.Controls {
			inner = append(inner, ctrl.messageComponent())
		}
		rows = append(rows, discordgo.ActionsRow{Components: inner})
	}
	return rows
}

func (c Control) messageComponent() discordgo.MessageComponent {
	if c.Kind == KindTextInput {
		style := discordgo.TextInputStyle(c.Style)
		if style == 0 {
			style = discordgo.TextInputShort
		}
		return discordgo.TextInput{
			CustomID:    c.StateToken,
			Label:       c.Label,
			Style:       style,
			Placeholder: c.Placeholder,
			Required:    c.Required,
			MaxLength:   c.MaxLength,
			Value:       c.Value,
		}
	}

	button := discordgo.Button{
		Label:    c.Label,
		Style:    discordgo.ButtonStyle(c.Style),
		Disabled: c.Disabled,
		CustomID: c.StateToken,
	}
	if button.Style == 0 {
		button.Style = discordgo.PrimaryButton
	}
	if c.Emoji != "" {
		button.Emoji = &discordgo.ComponentEmoji{Name: c.Emoji}
	}
	return button
}
