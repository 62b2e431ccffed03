package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	irlsMaxIter = 50
	irlsTol     = 1e-8

	// l2Penalty regularises the non-intercept coefficients; keeps the fit
	// well-posed even when the training batch is perfectly separable.
	l2Penalty = 1.0
)

// coefficients is a fitted linear decision function: one weight per
// TopFeatures column plus an intercept. Treated as immutable once fitted.
type coefficients struct {
	Weights   []float64
	Intercept float64
}

// fitLogistic trains a logistic regression on x (n rows, d columns) against
// binary labels, scaling each sample's loss contribution by the class weight
// of its label. Newton/IRLS from a zero start, so the result is
// deterministic for a fixed input.
func fitLogistic(x *mat.Dense, labels []int, w0, w1 float64) (*coefficients, error) {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}

	// Augmented design matrix: leading column of ones carries the intercept.
	aug := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		aug.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			aug.Set(i, j+1, x.At(i, j))
		}
	}

	sampleWeight := make([]float64, n)
	for i, label := range labels {
		if label == 1 {
			sampleWeight[i] = w1
		} else {
			sampleWeight[i] = w0
		}
	}

	beta := mat.NewVecDense(d+1, nil)
	prob := make([]float64, n)

	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			prob[i] = sigmoid(mat.Dot(aug.RowView(i), beta))
		}

		// Gradient of the weighted log-likelihood minus the L2 term. The
		// intercept is not penalised.
		resid := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			y := 0.0
			if labels[i] == 1 {
				y = 1
			}
			resid.SetVec(i, sampleWeight[i]*(y-prob[i]))
		}
		grad := mat.NewVecDense(d+1, nil)
		grad.MulVec(aug.T(), resid)
		for j := 1; j <= d; j++ {
			grad.SetVec(j, grad.AtVec(j)-l2Penalty*beta.AtVec(j))
		}

		// Hessian: X' S X + lambda*I with S = diag(cw * p * (1-p)).
		weighted := mat.NewDense(n, d+1, nil)
		for i := 0; i < n; i++ {
			s := sampleWeight[i] * prob[i] * (1 - prob[i])
			if s < 1e-10 {
				s = 1e-10
			}
			for j := 0; j <= d; j++ {
				weighted.Set(i, j, s*aug.At(i, j))
			}
		}
		hess := mat.NewDense(d+1, d+1, nil)
		hess.Mul(aug.T(), weighted)
		for j := 1; j <= d; j++ {
			hess.Set(j, j, hess.At(j, j)+l2Penalty)
		}

		step := mat.NewVecDense(d+1, nil)
		if err := step.SolveVec(hess, grad); err != nil {
			return nil, fmt.Errorf("solve newton step: %w", err)
		}
		beta.AddVec(beta, step)

		if mat.Norm(step, math.Inf(1)) < irlsTol {
			break
		}
	}

	weights := make([]float64, d)
	for j := 0; j < d; j++ {
		weights[j] = beta.AtVec(j + 1)
	}
	return &coefficients{Weights: weights, Intercept: beta.AtVec(0)}, nil
}

// decide applies the linear decision function per row: weighted sum plus
// intercept through the sigmoid, thresholded at 0.5.
func (c *coefficients) decide(x *mat.Dense) []int {
	n, d := x.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		z := c.Intercept
		for j := 0; j < d && j < len(c.Weights); j++ {
			z += c.Weights[j] * x.At(i, j)
		}
		if sigmoid(z) >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
