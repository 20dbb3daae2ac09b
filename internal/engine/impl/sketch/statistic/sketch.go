package statistic

// Sketch defines the interface for a quantile sketch.
// It supports insertion of integer samples and approximate quantile queries
// using memory independent of the number of samples.
type Sketch interface {
	Insert(v int64)
	Quantile(q float64) float64
	Count() int
}
