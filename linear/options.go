package linear

// Option configures an ElasticNet.
type Option func(*ElasticNet)

// WithAlpha sets the overall regularization strength.
func WithAlpha(alpha float64) Option {
	return func(en *ElasticNet) {
		en.Alpha = alpha
	}
}

// WithL1Ratio sets the L1 share of the penalty. 0 is ridge, 1 is lasso.
func WithL1Ratio(ratio float64) Option {
	return func(en *ElasticNet) {
		en.L1Ratio = ratio
	}
}

// WithMaxIter caps the number of coordinate descent sweeps.
func WithMaxIter(n int) Option {
	return func(en *ElasticNet) {
		en.MaxIter = n
	}
}

// WithTol sets the duality-gap tolerance.
func WithTol(tol float64) Option {
	return func(en *ElasticNet) {
		en.Tol = tol
	}
}

// WithFitIntercept sets whether to calculate the intercept.
func WithFitIntercept(fit bool) Option {
	return func(en *ElasticNet) {
		en.FitIntercept = fit
	}
}

// WithSelection sets the coordinate order, "cyclic" or "random".
func WithSelection(selection string) Option {
	return func(en *ElasticNet) {
		en.Selection = selection
	}
}

// WithRandomState seeds random coordinate selection.
func WithRandomState(seed int64) Option {
	return func(en *ElasticNet) {
		en.RandomState = seed
	}
}
