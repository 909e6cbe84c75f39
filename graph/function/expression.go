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
	"github.com/google/cel-go/common/types"
)

/*
Expression is a compiled CEL expression which computes a property value. It
sees the same variables as a predicate.
*/
type Expression struct {
	Expression string      // Source expression
	prg        cel.Program // Compiled program
}

/*
CompileExpression compiles a given CEL expression.
*/
func CompileExpression(expression string) (*Expression, error) {

	ast, iss := predicateEnv.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("Could not compile expression %q: %v", expression, iss.Err())
	}

	prg, err := predicateEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("Could not create program for %q: %v", expression, err)
	}

	return &Expression{expression, prg}, nil
}

/*
Eval evaluates this expression with a given set of variables. A null result
is returned as nil. CEL integers are returned as int64.
*/
func (x *Expression) Eval(vars map[string]interface{}) (interface{}, error) {

	out, _, err := x.prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("Could not evaluate %q: %v", x.Expression, err)
	}

	if out.Type() == types.NullType {
		return nil, nil
	}

	return out.Value(), nil
}

/*
String returns the source expression of this expression.
*/
func (x *Expression) String() string {
	return x.Expression
}
