package handicap

import "fmt"

// Format tags a threshold table. The tiebreaker format is fixed and does
// not consult the differential.
type Format string

const (
	FormatThreePlayer Format = "three_player"
	FormatFivePlayer  Format = "five_player"
	FormatTiebreaker  Format = "tiebreaker"
)

const (
	tiebreakerGamesToWin  = 2
	tiebreakerGamesToLose = 1
)

// Resolve maps a signed handicap differential to the per-team thresholds
// for the given format. The differential is clamped to [-12, 12] first, so
// resolution is total: every in-range differential has exactly one row and
// out-of-range values reuse the boundary row.
func Resolve(format Format, differential int) (Thresholds, error) {
	if format == FormatTiebreaker {
		return Thresholds{
			GamesToWin:  tiebreakerGamesToWin,
			GamesToLose: tiebreakerGamesToLose,
		}, nil
	}

	rows, err := rowsForFormat(format)
	if err != nil {
		return Thresholds{}, err
	}

	row := rows[Clamp(differential)-MinDifferential]
	out := Thresholds{
		GamesToWin:  row.win,
		GamesToLose: row.lose,
	}
	if row.tie > 0 {
		tie := row.tie
		out.GamesToTie = &tie
	}

	return out, nil
}

// GameCount returns the fixed ledger size for a format.
func GameCount(format Format) (int, error) {
	switch format {
	case FormatThreePlayer:
		return 18, nil
	case FormatFivePlayer:
		return 25, nil
	case FormatTiebreaker:
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown format %q", format)
	}
}

// TeamSize returns the lineup slot count for a format.
func TeamSize(format Format) (int, error) {
	switch format {
	case FormatThreePlayer, FormatTiebreaker:
		return 3, nil
	case FormatFivePlayer:
		return 5, nil
	default:
		return 0, fmt.Errorf("unknown format %q", format)
	}
}

func rowsForFormat(format Format) (*[25]tableRow, error) {
	switch format {
	case FormatThreePlayer:
		return &threePlayerRows, nil
	case FormatFivePlayer:
		return &fivePlayerRows, nil
	default:
		return nil, fmt.Errorf("no threshold table for format %q", format)
	}
}
