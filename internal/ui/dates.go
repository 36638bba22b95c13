package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/honesthomesales/TODO/internal/types"
)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDue reads a due date typed by a user: an ISO date such as
// 2024-06-01, or a phrase such as "tomorrow" or "next friday" relative to
// now. "none" and "-" mean no due date and return the zero Date.
func ParseDue(s string, now time.Time) (types.Date, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "-":
		return types.Date{}, nil
	}
	if d, err := types.ParseDate(s); err == nil {
		return d, nil
	}
	r, err := parser.Parse(s, now)
	if err != nil {
		return types.Date{}, fmt.Errorf("%w: due date %q: %v", types.ErrInvalid, s, err)
	}
	if r == nil {
		return types.Date{}, fmt.Errorf("%w: could not understand due date %q", types.ErrInvalid, s)
	}
	return types.DateOf(r.Time), nil
}
