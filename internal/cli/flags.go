package cli

import (
	"fmt"

	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/spf13/pflag"
)

// periodValue is a --period flag that only accepts known periods
type periodValue struct {
	period timelog.Period
}

var _ pflag.Value = (*periodValue)(nil)

func newPeriodValue(def timelog.Period) *periodValue {
	return &periodValue{period: def}
}

func (p *periodValue) String() string { return string(p.period) }
func (p *periodValue) Type() string   { return "period" }

func (p *periodValue) Set(value string) error {
	period, err := timelog.ParsePeriod(value)
	if err != nil {
		return err
	}
	p.period = period
	return nil
}

// enumValue is a string flag restricted to a fixed set of choices
type enumValue struct {
	value   string
	choices []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(def string, choices ...string) *enumValue {
	return &enumValue{value: def, choices: choices}
}

func (e *enumValue) String() string { return e.value }
func (e *enumValue) Type() string   { return "string" }

func (e *enumValue) Set(value string) error {
	for _, choice := range e.choices {
		if value == choice {
			e.value = value
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", e.choices)
}
