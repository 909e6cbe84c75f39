/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package schema

import (
	"fmt"

	"devt.de/krotik/kvgraph/graph/data"
	"devt.de/krotik/kvgraph/graph/util"
)

/*
AggregateProperties folds the properties of next into state. Only properties
at the given positions are folded. Nil values are skipped and properties
without an aggregate function keep their first value. The state map is
modified in place.
*/
func (g *GroupDef) AggregateProperties(state data.Properties, next data.Properties,
	positions ...Position) error {

	for _, p := range g.Properties {

		if !hasPosition(positions, p.Position) {
			continue
		}

		a, b := state[p.Name], next[p.Name]

		if b == nil {
			continue

		} else if a == nil {
			state[p.Name] = b
			continue

		} else if p.Aggregate == nil {
			continue
		}

		res, err := p.Aggregate.Apply(a, b)
		if err != nil {
			return &util.GraphError{Type: util.ErrSerialisation,
				Detail: fmt.Sprintf("Group %v property %v: %v", g.Name, p.Name, err)}
		}

		state[p.Name] = res
	}

	return nil
}

func hasPosition(positions []Position, pos Position) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}
