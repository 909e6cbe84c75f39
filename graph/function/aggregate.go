/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package function contains the functions which can be declared in a schema or
a view.

# Aggregate functions

An aggregate function folds two property values into one. All provided
functions are commutative and associative for the types they accept (first
and last are associative and rely on the order of the stored records).
Nil values are never passed to an aggregate function.

# Predicates

Predicates are CEL expressions which are compiled once and can then be
evaluated concurrently.
*/
package function

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

/*
ErrAggregation is returned if an aggregate function cannot combine two values
*/
var ErrAggregation = errors.New("Cannot aggregate values")

/*
AggregateFunction folds two property values into one.
*/
type AggregateFunction interface {

	/*
		Name returns the name of this function.
	*/
	Name() string

	/*
		Apply combines an aggregated value with the next value.
	*/
	Apply(state interface{}, next interface{}) (interface{}, error)
}

/*
aggregates holds all known aggregate functions
*/
var aggregates = map[string]AggregateFunction{
	"sum":   &numberAggregate{"sum", sumInt, sumInt64, sumFloat, nil, nil},
	"min":   &numberAggregate{"min", minInt, minInt64, minFloat, minString, minTime},
	"max":   &numberAggregate{"max", maxInt, maxInt64, maxFloat, maxString, maxTime},
	"first": &positionAggregate{"first", true},
	"last":  &positionAggregate{"last", false},
	"and":   &boolAggregate{"and", true},
	"or":    &boolAggregate{"or", false},
}

/*
GetAggregate returns an aggregate function by name.
*/
func GetAggregate(name string) (AggregateFunction, bool) {
	f, ok := aggregates[name]
	return f, ok
}

/*
AggregateNames returns the names of all known aggregate functions.
*/
func AggregateNames() []string {
	var ret []string

	for k := range aggregates {
		ret = append(ret, k)
	}
	sort.Strings(ret)

	return ret
}

func errAggregate(name string, a, b interface{}) error {
	return fmt.Errorf("%w: %v cannot combine %v (%T) and %v (%T)", ErrAggregation,
		name, a, a, b, b)
}

// Number based aggregates
// =======================

type numberAggregate struct {
	name     string
	intOp    func(a, b int) int
	int64Op  func(a, b int64) int64
	floatOp  func(a, b float64) float64
	stringOp func(a, b string) string
	timeOp   func(a, b time.Time) time.Time
}

func (f *numberAggregate) Name() string {
	return f.name
}

func (f *numberAggregate) Apply(state interface{}, next interface{}) (interface{}, error) {

	switch a := state.(type) {
	case int:
		if b, ok := next.(int); ok {
			return f.intOp(a, b), nil
		}
	case int64:
		if b, ok := next.(int64); ok {
			return f.int64Op(a, b), nil
		}
	case float64:
		if b, ok := next.(float64); ok {
			return f.floatOp(a, b), nil
		}
	case string:
		if b, ok := next.(string); ok && f.stringOp != nil {
			return f.stringOp(a, b), nil
		}
	case time.Time:
		if b, ok := next.(time.Time); ok && f.timeOp != nil {
			return f.timeOp(a, b), nil
		}
	}

	return nil, errAggregate(f.name, state, next)
}

func sumInt(a, b int) int           { return a + b }
func sumInt64(a, b int64) int64     { return a + b }
func sumFloat(a, b float64) float64 { return a + b }
func minInt(a, b int) int           { return min(a, b) }
func minInt64(a, b int64) int64     { return min(a, b) }
func minFloat(a, b float64) float64 { return min(a, b) }
func minString(a, b string) string  { return min(a, b) }
func maxInt(a, b int) int           { return max(a, b) }
func maxInt64(a, b int64) int64     { return max(a, b) }
func maxFloat(a, b float64) float64 { return max(a, b) }
func maxString(a, b string) string  { return max(a, b) }

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Position based aggregates
// =========================

type positionAggregate struct {
	name  string
	first bool
}

func (f *positionAggregate) Name() string {
	return f.name
}

func (f *positionAggregate) Apply(state interface{}, next interface{}) (interface{}, error) {
	if f.first {
		return state, nil
	}
	return next, nil
}

// Boolean aggregates
// ==================

type boolAggregate struct {
	name string
	and  bool
}

func (f *boolAggregate) Name() string {
	return f.name
}

func (f *boolAggregate) Apply(state interface{}, next interface{}) (interface{}, error) {
	a, ok1 := state.(bool)
	b, ok2 := next.(bool)

	if !ok1 || !ok2 {
		return nil, errAggregate(f.name, state, next)
	}

	if f.and {
		return a && b, nil
	}

	return a || b, nil
}
