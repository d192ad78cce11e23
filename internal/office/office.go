// Package office classifies raw office strings into the statewide and
// federal office categories tracked by the results tree.
package office

import (
	"strings"

	"kyrealign/pkg/textutil"
)

// Category is a tracked statewide office. The zero value is NonStatewide.
type Category string

// Tracked categories. The string value is the display label used as the
// office key in the results tree and as the contest name.
const (
	NonStatewide            Category = ""
	President               Category = "President"
	USSenate                Category = "U.S. Senate"
	Governor                Category = "Governor"
	LieutenantGovernor      Category = "Lieutenant Governor"
	AttorneyGeneral         Category = "Attorney General"
	SecretaryOfState        Category = "Secretary of State"
	StateTreasurer          Category = "State Treasurer"
	Auditor                 Category = "Auditor of Public Accounts"
	CommissionerAgriculture Category = "Commissioner of Agriculture"
)

// Label returns the display label.
func (c Category) Label() string {
	return string(c)
}

// IsStatewide reports whether the category is tracked.
func (c Category) IsStatewide() bool {
	return c != NonStatewide
}

type rule struct {
	category Category
	any      []string
	none     []string
}

// rules are evaluated in order; the first match wins. Lieutenant governor
// precedes governor, and legislative "state senate" seats are excluded
// before the U.S. Senate rule can claim them.
var rules = []rule{
	{category: President, any: []string{"president"}},
	{category: LieutenantGovernor, any: []string{"lieutenant governor", "lt. governor", "lt governor", "lieutenant"}},
	{category: Governor, any: []string{"governor"}},
	{category: USSenate, any: []string{"senate", "senator"}, none: []string{"state senate", "state senator"}},
	{category: AttorneyGeneral, any: []string{"attorney general"}},
	{category: SecretaryOfState, any: []string{"secretary of state"}},
	{category: StateTreasurer, any: []string{"treasurer"}},
	{category: Auditor, any: []string{"auditor"}},
	{category: CommissionerAgriculture, any: []string{"agriculture", "commissioner"}},
}

// Classify maps raw to a category. Unknown offices return NonStatewide.
func Classify(raw string) Category {
	text := textutil.Fold(raw)
	if text == "" {
		return NonStatewide
	}

	for _, r := range rules {
		if r.matches(text) {
			return r.category
		}
	}

	return NonStatewide
}

func (r rule) matches(text string) bool {
	for _, n := range r.none {
		if strings.Contains(text, n) {
			return false
		}
	}

	for _, a := range r.any {
		if strings.Contains(text, a) {
			return true
		}
	}

	return false
}

// Categories lists every tracked category in rule order.
func Categories() []Category {
	out := make([]Category, 0, len(rules))
	for _, r := range rules {
		if len(out) > 0 && out[len(out)-1] == r.category {
			continue
		}

		out = append(out, r.category)
	}

	return out
}
