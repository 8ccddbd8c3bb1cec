// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"math"
	"math/rand/v2"
)

// workSigma is the log-scale standard deviation of work durations.
const workSigma = 0.5

// minWorkMinutes floors sampled work durations.
const minWorkMinutes = 1.0

// lognormMinutes draws a log-normal work duration whose arithmetic mean is
// meanMinutes, clamped below at one minute. The location parameter is
// ln(mean) - sigma^2/2 so that meanMinutes is the mean of the distribution
// rather than its median.
func lognormMinutes(rng *rand.Rand, meanMinutes float64) float64 {
	mu := math.Log(meanMinutes) - workSigma*workSigma/2
	return math.Max(minWorkMinutes, math.Exp(mu+workSigma*rng.NormFloat64()))
}
