package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Eval runs the chain against sel. Navigation that runs out of nodes is not
// an error: the terminal step then yields "". A chain without a terminal
// operation returns the trimmed text of the final node set.
func (c Chain) Eval(sel *goquery.Selection) string {
	cur := sel
	for _, op := range c {
		switch op.Kind {
		case Find:
			cur = cur.Find(op.Arg)
		case Next:
			if op.Arg == "" {
				cur = cur.Next()
			} else {
				cur = cur.NextFiltered(op.Arg)
			}
		case Prev:
			if op.Arg == "" {
				cur = cur.Prev()
			} else {
				cur = cur.PrevFiltered(op.Arg)
			}
		case Parent:
			if op.Arg == "" {
				cur = cur.Parent()
			} else {
				cur = cur.ParentFiltered(op.Arg)
			}
		case Closest:
			cur = cur.Closest(op.Arg)
		case First:
			cur = cur.First()
		case Last:
			cur = cur.Last()
		case Eq:
			cur = cur.Eq(op.Index)
		case Text:
			return strings.TrimSpace(cur.Text())
		case Attr:
			v, _ := cur.Attr(op.Arg)
			return v
		}
	}
	return strings.TrimSpace(cur.Text())
}

// Evaluate parses expr and runs it against sel.
func Evaluate(expr string, sel *goquery.Selection) (string, error) {
	chain, err := Parse(expr)
	if err != nil {
		return "", err
	}
	return chain.Eval(sel), nil
}
