/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package function

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

/*
Variables which are available to element predicates
*/
const (
	VarValue       = "value"
	VarGroup       = "group"
	VarVertex      = "vertex"
	VarSource      = "source"
	VarDestination = "destination"
	VarDirected    = "directed"
	VarProperties  = "properties"
)

/*
predicateEnv is the CEL environment for all predicates. CEL environments and
programs are safe for concurrent use.
*/
var predicateEnv *cel.Env

func init() {
	var err error

	predicateEnv, err = cel.NewEnv(
		cel.Variable(VarValue, cel.DynType),
		cel.Variable(VarGroup, cel.StringType),
		cel.Variable(VarVertex, cel.DynType),
		cel.Variable(VarSource, cel.DynType),
		cel.Variable(VarDestination, cel.DynType),
		cel.Variable(VarDirected, cel.BoolType),
		cel.Variable(VarProperties, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)

	if err != nil {
		panic(fmt.Sprint("Could not create predicate environment: ", err))
	}
}

/*
Predicate is a compiled CEL expression which evaluates to a boolean.
*/
type Predicate struct {
	Expression string      // Source expression
	prg        cel.Program // Compiled program
}

/*
CompilePredicate compiles a given CEL expression.
*/
func CompilePredicate(expression string) (*Predicate, error) {

	ast, iss := predicateEnv.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("Could not compile expression %q: %v", expression, iss.Err())
	}

	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return nil, fmt.Errorf("Expression %q must return a boolean not %v",
			expression, ast.OutputType())
	}

	prg, err := predicateEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("Could not create program for %q: %v", expression, err)
	}

	return &Predicate{expression, prg}, nil
}

/*
Test evaluates this predicate with a given set of variables. A predicate which
cannot be evaluated (e.g. because of a type mismatch) returns an error.
*/
func (p *Predicate) Test(vars map[string]interface{}) (bool, error) {

	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("Could not evaluate %q: %v", p.Expression, err)
	}

	res, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("Expression %q did not return a boolean", p.Expression)
	}

	return res, nil
}

/*
String returns the source expression of this predicate.
*/
func (p *Predicate) String() string {
	return p.Expression
}
