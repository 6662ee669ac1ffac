// Package svm implements epsilon support vector regression.
package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Kernel names accepted by SVR.
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

type kernelFunc func(a, b []float64) float64

func newKernel(name string, gamma float64) kernelFunc {
	if name == KernelRBF {
		return func(a, b []float64) float64 {
			var d float64
			for k := range a {
				diff := a[k] - b[k]
				d += diff * diff
			}
			return math.Exp(-gamma * d)
		}
	}
	return func(a, b []float64) float64 {
		return floats.Dot(a, b)
	}
}

// kernelCache computes Gram matrix rows on first use.
type kernelCache struct {
	x    [][]float64
	k    kernelFunc
	rows [][]float64
	diag []float64
}

func newKernelCache(x [][]float64, k kernelFunc) *kernelCache {
	c := &kernelCache{x: x, k: k, rows: make([][]float64, len(x)), diag: make([]float64, len(x))}
	for i, xi := range x {
		c.diag[i] = k(xi, xi)
	}
	return c
}

func (c *kernelCache) row(i int) []float64 {
	if r := c.rows[i]; r != nil {
		return r
	}
	r := make([]float64, len(c.x))
	for j, xj := range c.x {
		r[j] = c.k(c.x[i], xj)
	}
	c.rows[i] = r
	return r
}
