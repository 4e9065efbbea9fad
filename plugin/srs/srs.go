// Package srs implements the two spaced-repetition policies used by MemoDrops.
//
// The ease policy is an SM-2 variant driven by a 0-5 grade and is used when
// reviewing enrolled cards. The streak policy is a coarser schedule driven by a
// right/wrong answer and is used by the topic learn log. The two policies keep
// separate state and are not interchangeable.
package srs

import "errors"

// ErrInvalidArgument is returned when an input is outside the domain of a policy.
// Use errors.Is to check.
var ErrInvalidArgument = errors.New("srs: invalid argument")
