package forecast

import (
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

// GenerateOutcome tags the result of a generation request.
type GenerateOutcome int

const (
	// Created: a new simulation was built, validated and stored.
	Created GenerateOutcome = iota
	// AlreadyExists: the store already held a simulation; nothing was written.
	AlreadyExists
	// Invalid: the simulation failed validation; nothing was written.
	Invalid
)

func (o GenerateOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// GenerateResult is the business outcome of Service.Generate.
type GenerateResult struct {
	Outcome GenerateOutcome
	Summary simulation.Summary           // set when Created
	Errors  []simulation.ValidationError // set when Invalid
}

// QueryOutcome tags the result of a read request.
type QueryOutcome int

const (
	Found QueryOutcome = iota
	NotFound
)

func (o QueryOutcome) String() string {
	if o == Found {
		return "found"
	}
	return "not_found"
}

// QueryResult is the outcome of Service.QueryDay.
type QueryResult struct {
	Outcome QueryOutcome
	Day     weather.Day
}

// SummaryResult is the outcome of Service.Summary.
type SummaryResult struct {
	Outcome QueryOutcome
	Summary simulation.Summary
}

// PeriodsResult is the outcome of Service.Periods.
type PeriodsResult struct {
	Outcome QueryOutcome
	Periods []simulation.Period
	Counts  simulation.PeriodCounts
}

// DaysResult is the outcome of Service.Days.
type DaysResult struct {
	Outcome QueryOutcome
	Summary simulation.Summary
	Days    []weather.Day
}
