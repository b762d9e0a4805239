package curvefit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model evaluates a parameterised function at x.
type Model func(x float64, params []float64) float64

// Data is the set of observations a model is fitted to.
type Data struct {
	X []float64
	Y []float64
}

// LMOptions configures LevenbergMarquardt. Zero values select the defaults
// below; Min and Max may be nil for an unbounded parameter space.
type LMOptions struct {
	InitialValues      []float64
	Min                []float64
	Max                []float64
	Damping            float64
	GradientDifference float64
	MaxIterations      int
	ErrorTolerance     float64
}

const (
	defaultDamping            = 1.5
	defaultGradientDifference = 0.1
	defaultMaxIterations      = 100
	defaultErrorTolerance     = 1e-6

	dampingStepUp        = 11.0
	dampingStepDown      = 9.0
	improvementThreshold = 1e-3
	minDamping           = 1e-7
	maxDamping           = 1e7
)

// LMResult holds the best parameters seen and their sum of squared errors.
type LMResult struct {
	Params     []float64
	Error      float64
	Iterations int
}

var (
	ErrNoData       = errors.New("curvefit: no data")
	ErrNotConverged = errors.New("curvefit: optimiser produced non-finite parameters")
)

func (o LMOptions) withDefaults() LMOptions {
	if o.Damping <= 0 {
		o.Damping = defaultDamping
	}
	if o.GradientDifference <= 0 {
		o.GradientDifference = defaultGradientDifference
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.ErrorTolerance <= 0 {
		o.ErrorTolerance = defaultErrorTolerance
	}
	return o
}

func (o LMOptions) bounds(i int) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if i < len(o.Min) {
		lo = o.Min[i]
	}
	if i < len(o.Max) {
		hi = o.Max[i]
	}
	return lo, hi
}

// LevenbergMarquardt minimises the sum of squared residuals of fn against
// data, starting from opts.InitialValues. Each step solves
// (λI + JᵀJ)δ = Jᵀr, clamps the parameters to their bounds and adapts λ
// from the achieved versus predicted improvement.
func LevenbergMarquardt(data Data, fn Model, opts LMOptions) (LMResult, error) {
	if len(data.X) == 0 || len(data.X) != len(data.Y) {
		return LMResult{}, ErrNoData
	}
	n := len(opts.InitialValues)
	if n == 0 {
		return LMResult{}, fmt.Errorf("curvefit: no initial values")
	}
	opts = opts.withDefaults()

	params := make([]float64, n)
	for i, v := range opts.InitialValues {
		lo, hi := opts.bounds(i)
		params[i] = math.Min(math.Max(v, lo), hi)
	}

	sse := SumSquaredError(data, fn, params)
	if math.IsNaN(sse) {
		return LMResult{}, fmt.Errorf("curvefit: initial error is NaN")
	}
	best := LMResult{Params: append([]float64(nil), params...), Error: sse}

	damping := opts.Damping
	iteration := 0
	for ; iteration < opts.MaxIterations && sse > opts.ErrorTolerance; iteration++ {
		previous := sse

		delta, gradient, err := step(data, fn, params, damping, opts.GradientDifference)
		if err != nil {
			return LMResult{}, err
		}
		for i := range params {
			lo, hi := opts.bounds(i)
			params[i] = math.Min(math.Max(params[i]+delta[i], lo), hi)
		}

		sse = SumSquaredError(data, fn, params)
		if math.IsNaN(sse) {
			break
		}
		if sse < best.Error-opts.ErrorTolerance {
			best.Params = append(best.Params[:0], params...)
			best.Error = sse
		}

		// Predicted reduction δᵀ(λδ + Jᵀr).
		var predicted float64
		for i := range delta {
			predicted += delta[i] * (damping*delta[i] + gradient[i])
		}
		if (previous-sse)/predicted > improvementThreshold {
			damping = math.Max(damping/dampingStepDown, minDamping)
		} else {
			damping = math.Min(damping*dampingStepUp, maxDamping)
		}
	}
	best.Iterations = iteration

	for _, p := range best.Params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return LMResult{}, ErrNotConverged
		}
	}
	return best, nil
}

// step returns the parameter update δ and the gradient Jᵀr it was solved from.
func step(data Data, fn Model, params []float64, damping, h float64) (delta, gradient []float64, err error) {
	n := len(params)
	jac := Jacobian(data, fn, params, h)

	residuals := make([]float64, len(data.X))
	for i, x := range data.X {
		residuals[i] = data.Y[i] - fn(x, params)
	}

	normal := mat.NewSymDense(n, nil)
	gradient = make([]float64, n)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			var sum float64
			for i := range residuals {
				sum += jac.At(i, a) * jac.At(i, b)
			}
			if a == b {
				sum += damping
			}
			normal.SetSym(a, b, sum)
		}
		for i, r := range residuals {
			gradient[a] += jac.At(i, a) * r
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return nil, nil, fmt.Errorf("curvefit: normal equations are not positive definite")
	}
	var d mat.VecDense
	if err := chol.SolveVecTo(&d, mat.NewVecDense(n, gradient)); err != nil {
		return nil, nil, fmt.Errorf("curvefit: solve step: %w", err)
	}
	delta = make([]float64, n)
	for i := range delta {
		delta[i] = d.AtVec(i)
	}
	return delta, gradient, nil
}

// Jacobian is the forward-difference derivative of fn with respect to each
// parameter at every observation: rows are observations, columns parameters.
func Jacobian(data Data, fn Model, params []float64, h float64) *mat.Dense {
	jac := mat.NewDense(len(data.X), len(params), nil)
	shifted := make([]float64, len(params))
	for j := range params {
		copy(shifted, params)
		shifted[j] += h
		for i, x := range data.X {
			jac.Set(i, j, (fn(x, shifted)-fn(x, params))/h)
		}
	}
	return jac
}

// SumSquaredError is Σ (y − fn(x))².
func SumSquaredError(data Data, fn Model, params []float64) float64 {
	var sse float64
	for i, x := range data.X {
		r := data.Y[i] - fn(x, params)
		sse += r * r
	}
	return sse
}
