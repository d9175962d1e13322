package domain

type AirplaneType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Airplane struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Rows           int    `json:"rows"`
	SeatsInRow     int    `json:"seats_in_row"`
	AirplaneTypeID int64  `json:"airplane_type"`
}

func (a Airplane) Capacity() int {
	return a.Rows * a.SeatsInRow
}

// ValidateSeat checks a seat position against the physical seat grid.
// Both bounds are inclusive.
func (a Airplane) ValidateSeat(row, seat int) error {
	if row < 1 || row > a.Rows {
		return NewValidationError(CodeInvalidRow, "row", "Invalid row")
	}
	if seat < 1 || seat > a.SeatsInRow {
		return NewValidationError(CodeInvalidSeat, "seat", "Invalid seat")
	}
	return nil
}

func ValidateSeatGrid(rows, seatsInRow int) error {
	if rows < 1 {
		return NewValidationError(CodeInvalidSeatGrid, "rows", "Ensure this value is greater than or equal to 1.")
	}
	if seatsInRow < 1 {
		return NewValidationError(CodeInvalidSeatGrid, "seats_in_row", "Ensure this value is greater than or equal to 1.")
	}
	return nil
}

// ValidateGridKeepsSeats rejects a grid that no longer contains the furthest
// sold row or seat.
func ValidateGridKeepsSeats(rows, seatsInRow, maxSoldRow, maxSoldSeat int) error {
	if rows < maxSoldRow {
		return NewValidationError(CodeSeatGridShrink, "rows", "Tickets are already sold in rows beyond this value")
	}
	if seatsInRow < maxSoldSeat {
		return NewValidationError(CodeSeatGridShrink, "seats_in_row", "Tickets are already sold in seats beyond this value")
	}
	return nil
}

type Crew struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (c Crew) FullName() string {
	return c.FirstName + " " + c.LastName
}
