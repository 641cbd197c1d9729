package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"pokertracker/internal/core"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseSessionDate accepts YYYY-MM-DD or English phrases such as
// "yesterday" or "last friday", resolved against now. An empty input means
// today.
func ParseSessionDate(input string, now time.Time) (core.Date, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return core.DateOf(now), nil
	}
	if d, err := core.ParseDate(input); err == nil {
		return d, nil
	}

	result, err := dateParser.Parse(input, now)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q: %v", core.ErrInvalidDate, input, err)
	}
	if result == nil {
		return core.Date{}, fmt.Errorf("%w: %q is not a date", core.ErrInvalidDate, input)
	}
	return core.DateOf(result.Time), nil
}
