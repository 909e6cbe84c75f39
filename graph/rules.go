/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"sort"
	"strings"

	"devt.de/krotik/kvgraph/graph/util"
)

/*
GraphRulesManager data structure
*/
type graphRulesManager struct {
	gm       *Manager                // GraphManager which provides events
	rules    map[string]Rule         // Map of graph rules
	eventMap map[int]map[string]Rule // Map of events to graph rules
}

/*
Rule models a graph rule.
*/
type Rule interface {

	/*
	   Name returns the name of the rule.
	*/
	Name() string

	/*
		Handles returns a list of events which are handled by this rule.
	*/
	Handles() []int

	/*
		Handle handles an event. Rules are called while the graph manager is
		locked for writing and should only work on the main database. The
		given transaction is nil for events which are not caused by a
		transaction.
	*/
	Handle(gm *Manager, trans Trans, event int, data ...interface{}) error
}

/*
graphEvent main event handler which receives all graph related events.
*/
func (gr *graphRulesManager) graphEvent(trans Trans, event int, data ...interface{}) error {
	var errors []string

	rules, ok := gr.eventMap[event]

	if ok {

		// Run rules in a stable order

		names := make([]string, 0, len(rules))
		for name := range rules {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {

			if err := rules[name].Handle(gr.gm, trans, event, data...); err != nil {
				errors = append(errors, err.Error())
			}
		}
	}

	if errors != nil {
		return &util.GraphError{Type: util.ErrRule, Detail: strings.Join(errors, ";")}
	}

	return nil
}

/*
SetGraphRule sets a GraphRule.
*/
func (gr *graphRulesManager) SetGraphRule(rule Rule) {
	gr.rules[rule.Name()] = rule

	for _, handledEvent := range rule.Handles() {

		rules, ok := gr.eventMap[handledEvent]
		if !ok {
			rules = make(map[string]Rule)
			gr.eventMap[handledEvent] = rules
		}

		rules[rule.Name()] = rule
	}
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gr *graphRulesManager) GraphRules() []string {
	ret := make([]string, 0, len(gr.rules))

	for rule := range gr.rules {
		ret = append(ret, rule)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

// System rule SystemRuleUpdateGroupStats
// ======================================

/*
SystemRuleUpdateGroupStats is a system rule to update the known groups and
the record count per group in the MainDB.
*/
type SystemRuleUpdateGroupStats struct {
}

/*
Name returns the name of the rule.
*/
func (r *SystemRuleUpdateGroupStats) Name() string {
	return "system.updategroupstats"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (r *SystemRuleUpdateGroupStats) Handles() []int {
	return []int{EventElementsAdded, EventStoreCompacted}
}

/*
Handle handles an event.
*/
func (r *SystemRuleUpdateGroupStats) Handle(gm *Manager, trans Trans, event int, ed ...interface{}) error {
	counts := ed[0].(map[string]int)

	groups := gm.getMainDBMap(MainDBGroups)
	if groups == nil {
		groups = make(map[string]string)
	}

	storeGroups := false

	for group, c := range counts {
		current := gm.readCount(group)

		if event == EventElementsAdded {

			if _, ok := groups[group]; !ok {
				groups[group] = ""
				storeGroups = true
			}

			gm.writeCount(group, current+uint64(c))

		} else if uint64(c) < current {

			gm.writeCount(group, current-uint64(c))

		} else {

			gm.writeCount(group, 0)
		}
	}

	if storeGroups {
		gm.storeMainDBMap(MainDBGroups, groups)
	}

	return nil
}
