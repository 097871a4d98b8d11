package handicap

// Thresholds holds the per-team game counts that decide a match. GamesToTie
// is nil for formats (or rows) where a drawn match is not possible.
type Thresholds struct {
	GamesToWin  int
	GamesToTie  *int
	GamesToLose int
}

const (
	// MinDifferential and MaxDifferential bound the lookup. Differentials
	// outside the range use the boundary row rather than failing.
	MinDifferential = -12
	MaxDifferential = 12
)

// Clamp restricts a raw handicap differential to the table range.
func Clamp(differential int) int {
	if differential < MinDifferential {
		return MinDifferential
	}
	if differential > MaxDifferential {
		return MaxDifferential
	}
	return differential
}

type tableRow struct {
	win  int
	tie  int // 0 means no tie row
	lose int
}

// Rows are indexed by differential+12, covering [-12, 12].
//
// three_player: 18 games, double round robin. Even differentials keep a tie
// row (the two sides' tie counts always sum to 18); odd differentials have
// none.
var threePlayerRows = [25]tableRow{
	{win: 4, tie: 3, lose: 2},   // -12
	{win: 5, tie: 0, lose: 2},   // -11
	{win: 5, tie: 4, lose: 3},   // -10
	{win: 6, tie: 0, lose: 3},   // -9
	{win: 6, tie: 5, lose: 4},   // -8
	{win: 7, tie: 0, lose: 4},   // -7
	{win: 7, tie: 6, lose: 5},   // -6
	{win: 8, tie: 0, lose: 5},   // -5
	{win: 8, tie: 7, lose: 6},   // -4
	{win: 9, tie: 0, lose: 6},   // -3
	{win: 9, tie: 8, lose: 7},   // -2
	{win: 10, tie: 0, lose: 7},  // -1
	{win: 10, tie: 9, lose: 8},  // 0
	{win: 11, tie: 0, lose: 8},  // +1
	{win: 11, tie: 10, lose: 9}, // +2
	{win: 12, tie: 0, lose: 9},  // +3
	{win: 12, tie: 11, lose: 10},
	{win: 13, tie: 0, lose: 10},
	{win: 13, tie: 12, lose: 11},
	{win: 14, tie: 0, lose: 11},
	{win: 14, tie: 13, lose: 12},
	{win: 15, tie: 0, lose: 12},
	{win: 15, tie: 14, lose: 13},
	{win: 16, tie: 0, lose: 13},
	{win: 16, tie: 15, lose: 14}, // +12
}

// five_player: 25 games, single round robin. An odd game total means no
// row defines a tie.
var fivePlayerRows = [25]tableRow{
	{win: 7, tie: 0, lose: 6}, // -12
	{win: 8, tie: 0, lose: 6},
	{win: 8, tie: 0, lose: 7},
	{win: 9, tie: 0, lose: 7},
	{win: 9, tie: 0, lose: 8},
	{win: 10, tie: 0, lose: 8},
	{win: 10, tie: 0, lose: 9},
	{win: 11, tie: 0, lose: 9},
	{win: 11, tie: 0, lose: 10},
	{win: 12, tie: 0, lose: 10},
	{win: 12, tie: 0, lose: 11},
	{win: 13, tie: 0, lose: 11},
	{win: 13, tie: 0, lose: 12}, // 0
	{win: 14, tie: 0, lose: 12},
	{win: 14, tie: 0, lose: 13},
	{win: 15, tie: 0, lose: 13},
	{win: 15, tie: 0, lose: 14},
	{win: 16, tie: 0, lose: 14},
	{win: 16, tie: 0, lose: 15},
	{win: 17, tie: 0, lose: 15},
	{win: 17, tie: 0, lose: 16},
	{win: 18, tie: 0, lose: 16},
	{win: 18, tie: 0, lose: 17},
	{win: 19, tie: 0, lose: 17},
	{win: 19, tie: 0, lose: 18}, // +12
}
