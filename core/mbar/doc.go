// Package mbar implements the multistate Bennett acceptance ratio estimator.
//
// Design:
//   • Input is a Matrix of reduced potentials, samples grouped by ensemble of origin.
//   • An Estimator is single-use: Ready → Solve → Converged | NotConverged → Reweight → Reduced.
//   • Connectivity is checked before iterating; a split data set is a
//     *ConfigurationError, never a degenerate answer.
//   • Hitting the iteration cap returns the best iterate plus a *ConvergenceWarning.
//   • Uncertainties come from the asymptotic covariance of the weight matrix.
//
// This package has no app/output deps.
package mbar
