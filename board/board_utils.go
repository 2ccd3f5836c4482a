package board

import (
	"fmt"
	"strings"
)

// Glyph returns the one-letter plaintext form of a piece.
func (p Piece) Glyph() byte {
	switch p {
	case RedMan:
		return 'r'
	case RedKing:
		return 'R'
	case GreenMan:
		return 'g'
	case GreenKing:
		return 'G'
	}
	return '.'
}

func pieceFromGlyph(b byte) (Piece, error) {
	switch b {
	case 'r':
		return RedMan, nil
	case 'R':
		return RedKing, nil
	case 'g':
		return GreenMan, nil
	case 'G':
		return GreenKing, nil
	case '.', ' ', '-':
		return Empty, nil
	}
	return Empty, fmt.Errorf("unknown piece glyph %q", b)
}

// SnapshotFromText parses a board written as eight rows of eight glyphs,
// row 0 first, in board (not visual) coordinates.
func SnapshotFromText(rows []string) (Snapshot, error) {
	var s Snapshot
	if len(rows) != Dim {
		return s, fmt.Errorf("board text has %d rows, expected %d", len(rows), Dim)
	}
	for r, line := range rows {
		if len(line) != Dim {
			return s, fmt.Errorf("board text row %d has %d glyphs, expected %d", r, len(line), Dim)
		}
		for c := 0; c < Dim; c++ {
			p, err := pieceFromGlyph(line[c])
			if err != nil {
				return s, err
			}
			if p != Empty && !Playable(Cell{Col: c, Row: r}) {
				return s, fmt.Errorf("piece on light square %v", Cell{Col: c, Row: r})
			}
			s[c][r] = p
		}
	}
	return s, nil
}

// ToText is the inverse of SnapshotFromText.
func (s *Snapshot) ToText() []string {
	rows := make([]string, Dim)
	for r := 0; r < Dim; r++ {
		var b strings.Builder
		for c := 0; c < Dim; c++ {
			b.WriteByte(s[c][r].Glyph())
		}
		rows[r] = b.String()
	}
	return rows
}

// ToDisplayText draws the board the way the player of color me sees it.
// Empty dark squares show their square number. marks, keyed by visual
// cell, override what is drawn on a square.
func (s *Snapshot) ToDisplayText(me Color, marks map[Cell]string) string {
	var sb strings.Builder
	sb.WriteString("    ")
	for c := 0; c < Dim; c++ {
		sb.WriteString(fmt.Sprintf(" %d  ", c))
	}
	sb.WriteString("\n")
	sb.WriteString("   +" + strings.Repeat("----", Dim) + "+\n")
	for vr := 0; vr < Dim; vr++ {
		sb.WriteString(fmt.Sprintf("%2d |", vr))
		for vc := 0; vc < Dim; vc++ {
			visual := Cell{Col: vc, Row: vr}
			canonical := ToCanonical(visual, me)
			if m, ok := marks[visual]; ok {
				sb.WriteString(fmt.Sprintf("%-4s", m))
				continue
			}
			p := s.At(canonical)
			id, playable := CellToID(canonical)
			switch {
			case !playable:
				sb.WriteString("    ")
			case p == Empty:
				sb.WriteString(fmt.Sprintf(" %2d ", id))
			default:
				sb.WriteString(fmt.Sprintf("  %c ", p.Glyph()))
			}
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("   +" + strings.Repeat("----", Dim) + "+\n")
	return sb.String()
}
