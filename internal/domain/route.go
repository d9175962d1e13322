package domain

const MinRouteDistance = 10

type Airport struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Route is a directed source -> destination airport pair.
type Route struct {
	ID          int64   `json:"id"`
	Source      Airport `json:"source"`
	Destination Airport `json:"destination"`
	Distance    int     `json:"distance"`
}

func (r Route) Name() string {
	return r.Source.Name + " - " + r.Destination.Name
}

func ValidateRoute(sourceID, destinationID int64, distance int) error {
	if sourceID == destinationID {
		return NewValidationError(CodeSameEndpoints, "source", "Source and destination must be different")
	}
	if distance < MinRouteDistance {
		return NewValidationError(CodeInvalidDistance, "distance", "Ensure this value is greater than or equal to 10.")
	}
	return nil
}

func DuplicateRouteError() *ValidationError {
	return NewValidationError(CodeDuplicateRoute, "__all__", "This route already exists")
}
