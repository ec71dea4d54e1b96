package cut

// #region predicate
// Predicate is the shape of an acceptance region. Each candidate cut supplies
// the region's bounds; each record supplies the observed values.
type Predicate string

const (
	// Below accepts score < cut.
	Below Predicate = "below"
	// Above accepts score > cut.
	Above Predicate = "above"
	// Interval accepts left <= score <= right.
	Interval Predicate = "interval"
	// Box accepts left <= x <= right and y < yMax, over two observables.
	Box Predicate = "box"
)

// #endregion predicate
