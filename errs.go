// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrInvalidConfig wraps every configuration problem reported by [Run].
const ErrInvalidConfig = constError("invalid run configuration")

// ErrInvalidScenario wraps every scenario problem reported by
// [Scenario.Validate] and [Run].
const ErrInvalidScenario = constError("invalid scenario")
